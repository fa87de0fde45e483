//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/md-overdose-map/internal/adapter/archive"
	"github.com/couchcryptid/md-overdose-map/internal/adapter/kafka"
	"github.com/couchcryptid/md-overdose-map/internal/config"
	"github.com/couchcryptid/md-overdose-map/internal/domain"
	"github.com/couchcryptid/md-overdose-map/internal/geo"
	"github.com/couchcryptid/md-overdose-map/internal/observability"
	"github.com/couchcryptid/md-overdose-map/internal/pipeline"
)

const testTopic = "test-overdose-maps"

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("overdose-map-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func readEvent(ctx context.Context, t *testing.T, broker string) (string, domain.MapGenerated) {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		Partition:   0,
		StartOffset: kafkago.FirstOffset,
	})
	defer consumer.Close()

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read map event")

	var event domain.MapGenerated
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	return string(msg.Key), event
}

type noFetch struct{}

func (noFetch) FetchIfAbsent(context.Context, string, string, string) (archive.Result, error) {
	return archive.Result{}, nil
}

type staticStore []domain.OverdoseRecord

func (s staticStore) Query(context.Context, int, string) ([]domain.OverdoseRecord, error) {
	return s, nil
}

func square(minLon, minLat, size float64) domain.Ring {
	return domain.Ring{
		{Lon: minLon, Lat: minLat},
		{Lon: minLon, Lat: minLat + size},
		{Lon: minLon + size, Lat: minLat + size},
		{Lon: minLon + size, Lat: minLat},
		{Lon: minLon, Lat: minLat},
	}
}

// TestPipelinePublishesMapEvent runs a map generation with the Kafka writer
// as notifier and reads the event back from the topic.
func TestPipelinePublishesMapEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	logger := observability.DiscardLogger()
	writer := kafka.NewWriter(cfg, logger)
	t.Cleanup(func() { _ = writer.Close() })

	boundaries := []domain.Boundary{{
		Attributes: map[string]string{"county": "Allegany"},
		Polygons:   geo.AssemblePolygons([]domain.Ring{square(-79.0, 39.4, 0.4)}),
	}}
	loader := pipeline.LoaderFunc(func(string) ([]domain.Boundary, error) { return boundaries, nil })
	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)

	dir := t.TempDir()
	p := pipeline.New(noFetch{}, staticStore{
		{ID: 115, Substance: "Alcohol", County: "Allegany", Year: 2013, Deaths: 2},
	}, loader, pipeline.Options{
		DataDir:  filepath.Join(dir, "data"),
		MapsDir:  filepath.Join(dir, "maps"),
		Catalog:  catalog,
		Notifier: writer,
	}, logger, observability.NewMetricsForTesting())

	res, err := p.Run(ctx, domain.MapRequest{Year: 2013, Substance: "Alcohol"})
	require.NoError(t, err)

	key, event := readEvent(ctx, t, broker)
	assert.Equal(t, "2013_alcohol", key)
	assert.Equal(t, res.RunID, event.RunID)
	assert.Equal(t, res.Path, event.Path)
	assert.Equal(t, 1, event.Features)
	assert.Equal(t, 1, event.Records)
}
