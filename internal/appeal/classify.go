package appeal

import "regexp"

// Classifier detects the configured "permanent" and "no appeal" markers in
// sanction reasons. Markers are case-insensitive regular expressions; a marker
// that is not a valid expression is matched literally.
type Classifier struct {
	permanent []*regexp.Regexp
	noAppeal  []*regexp.Regexp
}

func NewClassifier(permanent, noAppeal []string) *Classifier {
	return &Classifier{
		permanent: compileMarkers(permanent),
		noAppeal:  compileMarkers(noAppeal),
	}
}

// Permanent reports whether text carries a permanent ban marker
func (c *Classifier) Permanent(text string) bool {
	return matchAny(c.permanent, text)
}

// NoAppeal reports whether text forbids an appeal
func (c *Classifier) NoAppeal(text string) bool {
	return matchAny(c.noAppeal, text)
}

func compileMarkers(markers []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(markers))
	for _, m := range markers {
		if m == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + m)
		if err != nil {
			re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(m))
		}
		out = append(out, re)
	}
	return out
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	if text == "" {
		return false
	}
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
