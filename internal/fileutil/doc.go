// Package fileutil provides small filesystem helpers shared by the
// supervisor's process and store packages.
package fileutil
