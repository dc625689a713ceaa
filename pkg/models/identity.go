package models

import "github.com/google/uuid"

// PlayerIdentity links a game account to a Discord account
type PlayerIdentity struct {
	UserID    uuid.UUID
	DiscordID string
}

// LinkedAccount is the stored or transported shape of an identity link.
// Both fields may be empty when the remote side only knows half of the link.
type LinkedAccount struct {
	UserID    string `bson:"userId" json:"userId"`
	DiscordID string `bson:"discordId" json:"discordId"`
}
