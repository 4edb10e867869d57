// Package federation derives the public identity of actors: canonical URLs,
// WebFinger documents and lookups by URL. It works on the models.Actor
// interface and never on a concrete actor kind.
package federation
