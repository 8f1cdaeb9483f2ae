// Package models defines the band API data transfer objects and the few
// entities this client persists locally.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): plain structs matching the API's JSON
//   - [User], [NewUser] : account profile and registration payload
//   - [Band], [BandMember] : bands and their rosters
//   - [Event] : services, rehearsals and gigs with setlists
//   - [Song], [Lyrics], [LyricLine], [Chord] : song library and chord sheets
//   - [Post], [Comment], [Blessing] : the social feed
//   - [BandExport] : a band bundled with its events and songs for export
//   - [Credentials], [AuthResponse], [RefreshRequest] : session payloads
//
// 2. Persistent Entities: rows in the local SQLite database
//   - [ExportRun] : bulk export history
//
// Persistent entities implement [Model] and are stored through a [Repository].
package models
