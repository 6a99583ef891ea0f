// Package simplewidget provides a reusable library for hosting embeddable
// profile widgets with pluggable repository and blob storage backends.
//
// It exposes a single Service interface that orchestrates widget creation
// with collision-safe slug allocation, owner-scoped CRUD, shareable link
// and embed code generation, public widget reads with signed asset URLs,
// and image uploads. Implementations of repositories (memory, Postgres)
// and blob stores (memory, S3) are provided under subpackages.
//
// Slug Strategy
//
// Every widget is addressed by a public slug. Slugs derived from user
// input are normalized and padded; explicit slugs are validated against
// length, alphabet and reserved-word rules. The repository's unique
// constraint is the final arbiter; the allocator in the slug subpackage
// only steers generation away from known collisions.
package simplewidget
