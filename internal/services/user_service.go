package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"placementhelper/internal/database"
	"placementhelper/internal/models"
)

// UserService handles account storage in MongoDB
type UserService struct {
	collection *mongo.Collection
}

// NewUserService creates a new user service
func NewUserService(db *database.MongoDB) *UserService {
	return &UserService{
		collection: db.Collection(database.CollectionUsers),
	}
}

// CreateUser inserts a new user account
func (s *UserService) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.collection.InsertOne(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail finds a user by email. Returns (nil, nil) if none exists.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// UpdateLastLogin stamps the login time on an existing user
func (s *UserService) UpdateLastLogin(ctx context.Context, user *models.User) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"lastLoginAt": user.LastLoginAt}},
	)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
