// Package livecookie mirrors an asynchronous cookie store in memory and serves
// synchronous, reactive reads to many observers.
//
// A Mirror subscribes once to a Store's "change" feed, applies incremental
// add/update/remove events to an in-memory copy, and guarantees that by the time
// any consumer listener fires, Get and GetAll already reflect the update. Store
// backends include an in-memory store (MemStore) and a polling reader for local
// browser cookie databases (SQLiteStore, Chromium and Firefox formats).
//
// This is intended for local tooling (dev servers, TUIs, test harnesses). The
// sqlite backend reads local browser state and may trigger keyring prompts; it
// should not be used in server contexts.
package livecookie
