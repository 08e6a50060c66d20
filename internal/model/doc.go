// Package model defines the domain types for the cync CLI.
//
// It contains the target descriptor and its parser, the filesystem
// event envelope delivered by the watch layer, and the CLIError /
// exit-code machinery used to translate failures into process exit
// codes. Types here are plain values with no I/O; every other internal
// package depends on model and model depends on nothing internal.
//
// EventKind is a closed enum consumed by a single exhaustive switch in
// the engine, so adding a kind without handling it shows up in one
// place rather than as silently dropped events.
package model
