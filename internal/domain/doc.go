// Package domain defines the value types shared by the jobs letter packages.
//
// Types in this package carry no behavior beyond pure helpers: no database
// handles, no HTTP concerns.
package domain
