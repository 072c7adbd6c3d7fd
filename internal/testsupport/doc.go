// Package testsupport provides config, store, and fixture helpers shared by
// package tests.
package testsupport
