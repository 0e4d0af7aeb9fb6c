package repository

import (
	"errors"
	"testing"
)

func TestValidateReadOnlySQL(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{
			name:  "simple count",
			query: "SELECT count(*) FROM penalties WHERE season = 2025",
		},
		{
			name:  "aggregate per driver",
			query: "SELECT driver, COUNT(*) FROM penalties GROUP BY driver ORDER BY 2 DESC LIMIT 5",
		},
		{
			name:  "like match and lowercase select",
			query: "select * from penalties where driver LIKE '%Lando%'",
		},
		{
			name:    "not a select",
			query:   "SHOW TABLES",
			wantErr: true,
		},
		{
			name:    "stacked statements",
			query:   "SELECT * FROM penalties; DROP TABLE penalties",
			wantErr: true,
		},
		{
			name:    "line comment",
			query:   "SELECT * FROM penalties -- WHERE season = 2025",
			wantErr: true,
		},
		{
			name:    "delete keyword",
			query:   "SELECT * FROM penalties WHERE message = 'x' AND 1=1 DELETE",
			wantErr: true,
		},
		{
			name:    "non whitelisted table",
			query:   "SELECT * FROM users",
			wantErr: true,
		},
		{
			name:    "catalog probing",
			query:   "SELECT tablename FROM pg_catalog.pg_tables",
			wantErr: true,
		},
		{
			name:    "join against foreign table",
			query:   "SELECT * FROM penalties JOIN secrets ON 1=1",
			wantErr: true,
		},
		{
			name:    "no table reference",
			query:   "SELECT 1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReadOnlySQL(tt.query)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsafeSQL) {
					t.Fatalf("ValidateReadOnlySQL(%q) = %v, want ErrUnsafeSQL", tt.query, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateReadOnlySQL(%q) = %v, want nil", tt.query, err)
			}
		})
	}
}
