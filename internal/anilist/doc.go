// Package anilist fetches canonical anime and manga metadata from the AniList
// GraphQL API and converts it into matching.TargetRecord values.
package anilist
