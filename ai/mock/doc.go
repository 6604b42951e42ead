// Package mock provides deterministic test doubles for the ai interfaces.
//
// Mocks allow custom behavior injection via function fields and default to
// deterministic output, so tests can run without any model service.
package mock
