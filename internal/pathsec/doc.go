// Package pathsec validates and normalizes the filesystem paths handed to
// the agent supervisor: the working directory the agent runs in and the
// executable path the supervisor spawns.
//
// The two resolvers apply different policies. Working directories are
// availability-first: anything that fails validation (symlink, not a
// directory, unreadable) silently degrades to the user home directory,
// because a launch must not fail over a stale project path. Executable
// paths are strict: any shell metacharacter, any path outside the allowed
// roots, or anything that is not an existing regular file rejects the
// launch before a process is spawned.
package pathsec
