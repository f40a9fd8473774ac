package contacts

// A Redis-backed cache (as in itsneelabh/gomind's discovery layer, which
// keeps a similar token/contact cache in go-redis) was considered for this
// package. It wasn't adopted: the contact book is a per-user structure
// that lives alongside that user's did_document.json on disk, not a
// shared process-wide cache, so a second store would duplicate state
// rather than replace the JSON file.
