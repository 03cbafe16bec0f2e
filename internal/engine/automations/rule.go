package automations

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Config is a flat string map persisted as JSON. It backs both the trigger
// conditions and the action payload of a rule.
type Config map[string]string

func (c Config) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *Config) Scan(value interface{}) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		*c = Config{}
		return nil
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, c)
}

type Rule struct {
	ID            string `json:"id" db:"id"`
	OrgID         string `json:"org_id" db:"org_id"`
	Name          string `json:"name" db:"name"`
	TriggerType   string `json:"trigger_type" db:"trigger_type"`
	TriggerConfig Config `json:"trigger_config" db:"trigger_config"`
	ActionType    string `json:"action_type" db:"action_type"`
	ActionConfig  Config `json:"action_config" db:"action_config"`
	IsActive      bool   `json:"is_active" db:"is_active"`
	CreatedBy     string `json:"created_by" db:"created_by"`
	CreatedAt     int64  `json:"created_at" db:"created_at"`
}
