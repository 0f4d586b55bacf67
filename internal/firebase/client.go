// Package firebase initializes the Firebase Admin SDK clients the console uses
// for server-side test pushes and token persistence.
package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Client wraps a Firebase app.
type Client struct {
	app             *firebase.App
	firestoreClient *firestore.Client
}

// NewClient creates a Firebase app for projectID. An empty credJSON falls back
// to Application Default Credentials.
func NewClient(ctx context.Context, projectID, credJSON string) (*Client, error) {
	var opts []option.ClientOption
	if credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}

	config := &firebase.Config{
		ProjectID: projectID,
	}

	app, err := firebase.NewApp(ctx, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	return &Client{app: app}, nil
}

// Messaging returns an FCM client.
func (c *Client) Messaging(ctx context.Context) (*messaging.Client, error) {
	client, err := c.app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Messaging client: %w", err)
	}
	return client, nil
}

// Firestore returns the app's Firestore client, creating it on first use.
func (c *Client) Firestore(ctx context.Context) (*firestore.Client, error) {
	if c.firestoreClient != nil {
		return c.firestoreClient, nil
	}

	client, err := c.app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firestore client: %w", err)
	}
	c.firestoreClient = client
	return client, nil
}

// Close closes the Firestore client if one was created.
func (c *Client) Close() error {
	if c.firestoreClient != nil {
		return c.firestoreClient.Close()
	}
	return nil
}
