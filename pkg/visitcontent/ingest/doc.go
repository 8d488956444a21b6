// Package ingest provides the candidate sources an operator can sync from.
//
// Every source is one-shot: Sync fetches the whole feed and returns raw
// candidates tagged with the source name. Sources never write anything and
// never deduplicate; decoding and queueing happen in the console.
package ingest
