// Package gerrit talks to a Gerrit-style code-review backend.
//
// A Transport moves raw bytes over REST (RestTransport) or the SSH command
// interface (SSHTransport); TransportFactory picks one from Configuration.
// ReviewFacade sits on top: it caches the revision's changed files, normalizes
// analysis paths, and encodes ReviewDocument values into the backend's review
// input JSON. Facade failures surface as DomainError.
package gerrit
