package config

import (
	"encoding/json"
	"fmt"
	"os"
)

type Secrets struct {
	Db DbSecrets `json:"db"`
}

type DbSecrets struct {
	Host      string `json:"host"`
	User      string `json:"user"`
	Port      string `json:"port"`
	Password  string `json:"password"`
	Database  string `json:"database"`
	EnableSsl bool   `json:"enableSsl"`
}

func (t DbSecrets) ToConnectionStr() string {
	x := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s",
		t.Host, t.Port, t.User, t.Password, t.Database)
	if !t.EnableSsl {
		x += " sslmode=disable"
	}
	return x
}

// LoadSecrets reads FACTORLAB_DB_* from the environment and falls back
// to a secrets json file. FACTORLAB_SECRETS overrides the file location
func LoadSecrets() (*Secrets, error) {
	if host := os.Getenv("FACTORLAB_DB_HOST"); host != "" {
		return &Secrets{
			Db: DbSecrets{
				Host:      host,
				User:      os.Getenv("FACTORLAB_DB_USER"),
				Port:      os.Getenv("FACTORLAB_DB_PORT"),
				Password:  os.Getenv("FACTORLAB_DB_PASSWORD"),
				Database:  os.Getenv("FACTORLAB_DB_NAME"),
				EnableSsl: os.Getenv("FACTORLAB_DB_SSL") == "true",
			},
		}, nil
	}

	secretsFile := os.Getenv("FACTORLAB_SECRETS")
	if secretsFile == "" {
		secretsFile = "secrets.json"
		if os.Getenv("FACTORLAB_ENV") == "dev" {
			secretsFile = "secrets-dev.json"
		}
	}
	f, err := os.ReadFile(secretsFile)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", secretsFile, err)
	}

	secrets := Secrets{}
	if err := json.Unmarshal(f, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", secretsFile, err)
	}
	return &secrets, nil
}
