package influxdb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/config"
)

func TestPoints(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name  string
		point *write.Point
		want  []string
	}{
		{
			name:  "pool claim",
			point: poolClaimPoint(7, ts),
			want:  []string{"credential_pool,event=claim", "remaining=7i"},
		},
		{
			name:  "pool exhausted",
			point: poolExhaustedPoint(ts),
			want:  []string{"credential_pool,event=exhausted", "exhausted=true", "remaining=0i"},
		},
		{
			name:  "tap",
			point: tapPoint("ws-1", "dev-1", ts),
			want:  []string{"tap,device_id=dev-1,workspace_id=ws-1", "count=1i"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := write.PointToLineProtocol(tt.point, time.Second)
			for _, part := range tt.want {
				if !strings.Contains(line, part) {
					t.Errorf("line %q missing %q", line, part)
				}
			}
			if !strings.HasSuffix(strings.TrimSpace(line), "1700000000") {
				t.Errorf("line %q should end with the timestamp", line)
			}
		})
	}
}

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.InfluxDBConfig
		wantBatch uint
		wantFlush uint
	}{
		{"configured", config.InfluxDBConfig{BatchSize: 50, FlushInterval: 2}, 50, 2000},
		{"defaults for zero", config.InfluxDBConfig{}, defaultBatchSize, 10000},
		{"defaults for negative", config.InfluxDBConfig{BatchSize: -5, FlushInterval: -1}, defaultBatchSize, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := clientOptions(tt.cfg)
			if got := opts.BatchSize(); got != tt.wantBatch {
				t.Errorf("BatchSize() = %d, want %d", got, tt.wantBatch)
			}
			if got := opts.FlushInterval(); got != tt.wantFlush {
				t.Errorf("FlushInterval() = %d, want %d", got, tt.wantFlush)
			}
		})
	}
}

func TestClosedClientDropsPoints(t *testing.T) {
	c := &Client{}

	c.RecordPoolClaim(3)
	c.RecordPoolExhausted()
	c.RecordTap("ws-1", "dev-1")
	c.Flush()

	if got := c.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}
