// Package testutils provides fixtures shared by tests across packages:
// in-process stores for both drivers, generated PDF documents, multipart
// upload requests, a capturing slog handler and CI-aware timeouts.
//
// It is imported only from _test.go files.
package testutils
