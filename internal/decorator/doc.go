// Package decorator turns a project analysis into a single review on the
// backend: it matches analyzed paths to the revision's changed files, converts
// issues into inline comments, derives a vote, and submits the result.
package decorator
