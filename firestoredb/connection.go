package firestoredb

import (
	"cloud.google.com/go/firestore"
	"context"
	"fmt"
)

type IConnection interface {
	Validate() error
	GetClient() *firestore.Client
	GetTransaction() *firestore.Transaction
	HasTransaction() bool
	HasClient() bool
	Close() error
	SetTransaction(tx *firestore.Transaction) IConnection
}

type Connection struct {
	client      *firestore.Client
	transaction *firestore.Transaction
}

// NewConnection wraps client. When a transaction is given every read made
// through the connection joins it.
func NewConnection(client *firestore.Client, transaction ...*firestore.Transaction) *Connection {
	c := &Connection{client: client}
	if len(transaction) > 0 && transaction[0] != nil {
		c.transaction = transaction[0]
	}
	return c
}

// Connect creates a client for projectID. FIRESTORE_EMULATOR_HOST is honoured
// by the client library.
func Connect(ctx context.Context, projectID string) (*Connection, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore connect: %w", err)
	}
	return NewConnection(client), nil
}

func (c *Connection) Validate() error {
	if !c.HasClient() {
		return fmt.Errorf("firestore client is required")
	}
	return nil
}

func (c *Connection) GetClient() *firestore.Client {
	return c.client
}

func (c *Connection) GetTransaction() *firestore.Transaction {
	return c.transaction
}

func (c *Connection) HasTransaction() bool {
	return c.transaction != nil
}

func (c *Connection) HasClient() bool {
	return c.client != nil
}

func (c *Connection) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// SetTransaction makes later reads through c join tx. A nil tx detaches c
// from any transaction.
func (c *Connection) SetTransaction(tx *firestore.Transaction) IConnection {
	c.transaction = tx
	return c
}


// documents runs q, inside the transaction when there is one.
func (c *Connection) documents(ctx context.Context, q firestore.Query) ([]*firestore.DocumentSnapshot, error) {
	if c.HasTransaction() {
		return c.transaction.Documents(q).GetAll()
	}
	return q.Documents(ctx).GetAll()
}

// get reads a single document, inside the transaction when there is one.
func (c *Connection) get(ctx context.Context, ref *firestore.DocumentRef) (*firestore.DocumentSnapshot, error) {
	if c.HasTransaction() {
		return c.transaction.Get(ref)
	}
	return ref.Get(ctx)
}

// getAll reads several documents, inside the transaction when there is one.
func (c *Connection) getAll(ctx context.Context, refs []*firestore.DocumentRef) ([]*firestore.DocumentSnapshot, error) {
	if c.HasTransaction() {
		return c.transaction.GetAll(refs)
	}
	return c.client.GetAll(ctx, refs)
}
