// Package visitcontent provides the submission intake and moderation pipeline
// behind the town's visitor site.
//
// Visitors submit events, operators pull candidate events from external
// feeds, and an authenticated operator reviews the pending queue before
// anything becomes public. Dining places, lodging places and landmarks are
// managed through the same operator console but have no approval step.
//
// The Service interface orchestrates the Content Store and the Asset Store.
// Implementations of the content store (memory, Postgres) and asset stores
// (memory, filesystem, S3) are provided under subpackages.
//
// Moderation Model
//
// Events move one way, from pending to published. Rejection deletes the
// record outright. Places and landmarks are visible as soon as they are
// created and only support edit and delete. The two shapes are exposed
// through distinct interfaces, Moderatable and Repository, so the asymmetry
// stays visible at the type level.
package visitcontent
