package redis

import (
	"fmt"

	"github.com/mcoot/teamprogress/internal/model"
)

// Key prefix for all tracker data
const keyPrefix = "tp"

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// registeredUserKey returns the Redis key for a RegisteredUser
func registeredUserKey(id model.UserID) string {
	return fmt.Sprintf("%s:registered_user:%s", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> user_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// progressKey returns the Redis key for progress/{userId}
func progressKey(id model.UserID) string {
	return fmt.Sprintf("%s:progress:%s", keyPrefix, id)
}

// teamKey returns the Redis key for team/{teamId}
func teamKey(id model.TeamID) string {
	return fmt.Sprintf("%s:team:%s", keyPrefix, id)
}

// systemKey returns the Redis key for system/{userId}
func systemKey(id model.UserID) string {
	return fmt.Sprintf("%s:system:%s", keyPrefix, id)
}

// documentKey returns the Redis key for a game graph document
func documentKey(name string) string {
	return fmt.Sprintf("%s:doc:%s", keyPrefix, name)
}
