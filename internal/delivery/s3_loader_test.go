package delivery

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObjectGetter serves object bodies from memory.
type fakeObjectGetter struct {
	objects map[string]string
}

func (f *fakeObjectGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[*params.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

// mockLoader is a mock implementation of the Loader interface for testing.
type mockLoader struct {
	loadFunc func(ctx context.Context, path string) (RateTable, error)
}

func (m *mockLoader) Load(ctx context.Context, path string) (RateTable, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx, path)
	}
	return nil, errors.New("not implemented")
}

func tableOf(rates map[string]int64) RateTable {
	table := newMapRateTable(len(rates))
	for city, cost := range rates {
		table.Set(city, decimal.NewFromInt(cost))
	}
	return table
}

func TestS3Loader_Load(t *testing.T) {
	getter := &fakeObjectGetter{objects: map[string]string{
		"delivery/rates.csv": "city,cost\nBaghdad,5000\n",
	}}
	loader := newS3Loader(getter, "bucket", zerolog.Nop())

	table, err := loader.Load(context.Background(), "delivery/rates.csv")
	require.NoError(t, err)
	rate, ok := table.Lookup("baghdad")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(5000)))

	_, err = loader.Load(context.Background(), "delivery/missing.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get object from S3")
}

func TestFallbackLoader(t *testing.T) {
	s3Table := tableOf(map[string]int64{"erbil": 7000})
	fileTable := tableOf(map[string]int64{"basra": 6000})

	tests := []struct {
		name        string
		s3Loader    Loader
		s3Enabled   bool
		fileErr     error
		expectCity  string
		expectError bool
	}{
		{
			name: "S3 succeeds",
			s3Loader: &mockLoader{loadFunc: func(ctx context.Context, path string) (RateTable, error) {
				assert.Equal(t, "delivery/rates.csv", path, "S3 key should have prefix")
				return s3Table, nil
			}},
			s3Enabled:  true,
			expectCity: "erbil",
		},
		{
			name: "S3 fails, falls back to local",
			s3Loader: &mockLoader{loadFunc: func(ctx context.Context, path string) (RateTable, error) {
				return nil, errors.New("s3 down")
			}},
			s3Enabled:  true,
			expectCity: "basra",
		},
		{
			name: "S3 disabled",
			s3Loader: &mockLoader{loadFunc: func(ctx context.Context, path string) (RateTable, error) {
				t.Error("S3 loader should not be called when disabled")
				return nil, errors.New("unexpected")
			}},
			s3Enabled:  false,
			expectCity: "basra",
		},
		{
			name:       "S3 loader nil",
			s3Loader:   nil,
			s3Enabled:  true,
			expectCity: "basra",
		},
		{
			name: "Both fail",
			s3Loader: &mockLoader{loadFunc: func(ctx context.Context, path string) (RateTable, error) {
				return nil, errors.New("s3 down")
			}},
			s3Enabled:   true,
			fileErr:     errors.New("file missing"),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileLoader := &mockLoader{loadFunc: func(ctx context.Context, path string) (RateTable, error) {
				assert.Equal(t, "rates.csv", path, "local path should not have prefix")
				if tt.fileErr != nil {
					return nil, tt.fileErr
				}
				return fileTable, nil
			}}

			loader := NewFallbackLoader(tt.s3Loader, fileLoader, "delivery/", tt.s3Enabled, zerolog.Nop())
			table, err := loader.Load(context.Background(), "rates.csv")

			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			_, ok := table.Lookup(tt.expectCity)
			assert.True(t, ok)
		})
	}
}
