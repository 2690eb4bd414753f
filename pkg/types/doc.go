// Package types defines the task record, the Store and SessionStorage
// contracts, the tagged Action type, configuration, and the standard error
// values shared by every todos package.
package types
