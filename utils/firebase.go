// utils/firebase.go
package utils

import (
	"context"
	"fmt"
	"os"

	"ambulance/config"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// FirebaseInit initializes the Firebase App shared by the Auth, Messaging,
// Firestore and Storage clients.
func FirebaseInit(ctx context.Context) (*firebase.App, error) {
	var conf *firebase.Config
	if config.AppConfig.FirebaseProjectID != "" || config.AppConfig.FirebaseBucket != "" {
		conf = &firebase.Config{
			ProjectID:     config.AppConfig.FirebaseProjectID,
			StorageBucket: config.AppConfig.FirebaseBucket,
		}
	}

	var opts []option.ClientOption
	if path := config.AppConfig.FirebaseCredentialsFile; path != "" {
		if _, err := os.Stat(path); err == nil {
			opts = append(opts, option.WithCredentialsFile(path))
		}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}
	return app, nil
}
