package sqlstore

import (
	"bytes"
	"encoding/json"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	IndexName string    `bun:"index_name,pk"`
	ID        string    `bun:"id,pk"`
	Body      string    `bun:"body,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (d *document) decode() (map[string]any, error) {
	out := map[string]any{}
	if d.Body != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(d.Body)))
		if err := dec.Decode(&out); err != nil {
			return nil, err
		}
	}
	out["id"] = d.ID
	return out, nil
}

func encode(doc map[string]any) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// documentHandlers adapts documents to go-repository-bun. Document ids are
// free form strings, so non uuid ids are reported through a name based uuid
// and only an empty id counts as unset.
func documentHandlers() repository.ModelHandlers[*document] {
	return repository.ModelHandlers[*document]{
		NewRecord: func() *document { return new(document) },
		GetID: func(d *document) uuid.UUID {
			if d == nil || d.ID == "" {
				return uuid.Nil
			}
			if id, err := uuid.Parse(d.ID); err == nil {
				return id
			}
			return uuid.NewSHA1(uuid.NameSpaceOID, []byte(d.ID))
		},
		SetID: func(d *document, id uuid.UUID) {
			d.ID = id.String()
		},
		GetIdentifier: func() string { return "id" },
	}
}

// selectDocument narrows a select to one document of an index.
func selectDocument(index, id string) []repository.SelectCriteria {
	return []repository.SelectCriteria{
		repository.SelectBy("index_name", "=", index),
		repository.SelectByID(id),
	}
}
