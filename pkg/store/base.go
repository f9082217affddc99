package store

// BaseRunStore is the base implementation of a RunStore. Client is the underlying
// datastore client, such as a database connection.
type BaseRunStore[T any] struct {
	Client T
}
