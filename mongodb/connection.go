package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type IConnection interface {
	Validate() error
	GetClient() *mongo.Client
	GetDatabase() *mongo.Database
	HasClient() bool
	Model(collection string) *Model
	Close(ctx context.Context) error
}

type Connection struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewConnection wraps an existing client and selects database.
func NewConnection(client *mongo.Client, database string) *Connection {
	c := &Connection{client: client}
	if client != nil {
		c.database = client.Database(database)
	}
	return c
}

// Connect dials uri and selects database.
func Connect(uri, database string) (*Connection, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return NewConnection(client, database), nil
}

func (c *Connection) Validate() error {
	if !c.HasClient() {
		return fmt.Errorf("mongodb client is required")
	}
	return nil
}

func (c *Connection) GetClient() *mongo.Client {
	return c.client
}

func (c *Connection) GetDatabase() *mongo.Database {
	return c.database
}

func (c *Connection) HasClient() bool {
	return c.client != nil
}

// Model returns a restquery.Model over collection. References declared on
// the model resolve against collections of the same database.
func (c *Connection) Model(collection string) *Model {
	return NewModel(c.database.Collection(collection))
}

func (c *Connection) Close(ctx context.Context) error {
	if c.client != nil {
		return c.client.Disconnect(ctx)
	}
	return nil
}
