// Package docsync holds the domain types, collaborator interfaces and
// error taxonomy for the documentation synchronization pipeline. The
// concrete fetch, convert, index and schedule implementations live in
// sibling packages and depend only on this one.
package docsync
