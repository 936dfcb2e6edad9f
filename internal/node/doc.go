// Package node assembles the repositories of one attrhub node from its
// configuration and keeps them in line with configuration reloads.
package node
