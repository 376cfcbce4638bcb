package models

import (
	"bytes"
	"fmt"
	"strconv"
)

// ID est un identifiant numérique du service de données.
// Certains endpoints (auth) le renvoient sous forme de chaîne, d'où le décodage souple.
type ID int64

func (id *ID) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(data, `"`)
	if len(raw) == 0 || string(raw) == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("identifiant invalide %q: %w", string(data), err)
	}
	*id = ID(v)
	return nil
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID convertit un paramètre de route en ID
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("identifiant invalide: %q", s)
	}
	return ID(v), nil
}
