// Package testutil provides testing utilities and test fixtures shared by
// the mcp-sqlguard package tests.
package testutil
