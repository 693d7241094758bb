package mytypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/mpapenbr/redlight-race-go/pkg/model"
)

// RaceSettings maps model.RaceSettings to a jsonb column
type RaceSettings model.RaceSettings

func (s *RaceSettings) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into RaceSettings", value)
	}
}

func (s RaceSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}
