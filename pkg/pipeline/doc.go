// Package pipeline runs the per-account page loop and fans accounts out over
// a fixed worker pool.
//
// An AccountPipeline walks one account's listing page by page: it asks the
// usage tracker for admission, fetches the page, filters every record
// against the report window and expands the survivors into rows. An empty
// page ends the account successfully; a transport error ends it as failed
// while keeping the rows gathered so far.
//
// The Aggregator runs one pipeline per account on a bounded pool of workers
// and merges rows and processing errors in account order. One account
// failing never stops the others.
package pipeline
