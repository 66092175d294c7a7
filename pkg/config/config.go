package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort         string
	Environment        string
	FirebaseProject    string
	ServiceAccountJSON string
	ServiceAccountPath string

	StorageBucket string
	AvatarURLTTL  int64 // minutes

	StoreDriver            string // "firestore" or "memory"
	ConversationCollection string
	JobSeekerCollection    string
	EmployerCollection     string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	IdentityCacheTTL int64 // minutes, 0 keeps entries forever

	SendMessagePerMinute      int
	CreateConversationPerHour int

	DefaultTimezone string
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		FirebaseProject:    getEnv("FIREBASE_PROJECT_ID", ""),
		ServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),

		StorageBucket: getEnv("STORAGE_BUCKET", ""),
		AvatarURLTTL:  getEnvAsInt64("AVATAR_URL_TTL_MINUTES", 60),

		StoreDriver:            getEnv("STORE_DRIVER", "firestore"),
		ConversationCollection: getEnv("CONVERSATION_COLLECTION", "chats"),
		JobSeekerCollection:    getEnv("JOBSEEKER_COLLECTION", "jobseekers"),
		EmployerCollection:     getEnv("EMPLOYER_COLLECTION", "companies"),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          int(getEnvAsInt64("REDIS_DB", 0)),
		IdentityCacheTTL: getEnvAsInt64("IDENTITY_CACHE_TTL_MINUTES", 0),

		SendMessagePerMinute:      int(getEnvAsInt64("SEND_MESSAGE_PER_MINUTE", 30)),
		CreateConversationPerHour: int(getEnvAsInt64("CREATE_CONVERSATION_PER_HOUR", 20)),

		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "UTC"),
	}

	return config, nil
}

// IsDevelopment reports whether the process runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}
