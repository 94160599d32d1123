//go:build integration

// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/raphaelgruber/contentmill/internal/metrics"
	"github.com/raphaelgruber/contentmill/internal/models"
)

var testDB *Client
var testMetrics = metrics.NewCollector()
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil, testMetrics)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

func newDocument(id, title string, snapshot map[string]string) *models.Document {
	return &models.Document{
		ID:               id,
		Topic:            title,
		Locale:           "en-US",
		Language:         "en",
		Title:            title,
		TitleFingerprint: models.Fingerprint(title),
		Body:             "## Intro\n\nHours: " + snapshot["supportHours"],
		TitleSource:      title,
		BodySource:       "## Intro\n\nHours: {{supportHours}}",
		Status:           models.StatusPublished,
		VariableSnapshot: snapshot,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

func TestClientQueryRecordsTiming(t *testing.T) {
	ctx := context.Background()

	var before int64
	if snap := testMetrics.Snapshot().DBQuery; snap != nil {
		before = snap.Count
	}
	_, err := testDB.Query(ctx, "RETURN 1", nil)
	require.NoError(t, err)

	after := testMetrics.Snapshot().DBQuery
	require.NotNil(t, after)
	assert.Greater(t, after.Count, before)
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func TestCreateAndGetDocument(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.WipeData(ctx))

	doc := newDocument("doc-get", "Customer Support Guide", map[string]string{"supportHours": "9-5"})
	require.NoError(t, testDB.CreateDocument(ctx, doc))

	got, err := testDB.GetDocument(ctx, "doc-get")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "doc-get", got.ID)
	assert.Equal(t, "Customer Support Guide", got.Title)
	assert.Equal(t, "9-5", got.VariableSnapshot["supportHours"])

	missing, err := testDB.GetDocument(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateDocumentRejectsDuplicateFingerprint(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.WipeData(ctx))

	require.NoError(t, testDB.CreateDocument(ctx, newDocument("a", "Pricing Guide", nil)))

	err := testDB.CreateDocument(ctx, newDocument("b", "pricing   guide!", nil))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	exists, err := testDB.FingerprintExists(ctx, models.Fingerprint("Pricing Guide"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFindPublishedBySnapshot(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.WipeData(ctx))

	require.NoError(t, testDB.CreateDocument(ctx, newDocument("d1", "One", map[string]string{"supportHours": "9-5"})))
	require.NoError(t, testDB.CreateDocument(ctx, newDocument("d2", "Two", map[string]string{"supportHours": "24/7"})))
	draft := newDocument("d3", "Three", map[string]string{"supportHours": "9-5"})
	draft.Status = models.StatusDraft
	require.NoError(t, testDB.CreateDocument(ctx, draft))

	ids, err := testDB.FindPublishedBySnapshot(ctx, "supportHours", "9-5")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids)
}

func TestApplyRender(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.WipeData(ctx))
	require.NoError(t, testDB.CreateDocument(ctx, newDocument("r1", "Render Me", map[string]string{"supportHours": "9-5"})))

	err := testDB.ApplyRender(ctx, "r1", models.RenderedContent{
		Title:            "Render Me",
		Body:             "## Intro\n\nHours: 24/7",
		WordCount:        3,
		VariableSnapshot: map[string]string{"supportHours": "24/7"},
		QualityScore:     81,
	})
	require.NoError(t, err)

	got, err := testDB.GetDocument(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "## Intro\n\nHours: 24/7", got.Body)
	assert.Equal(t, map[string]string{"supportHours": "24/7"}, got.VariableSnapshot)
	assert.Equal(t, 81, got.QualityScore)

	err = testDB.ApplyRender(ctx, "missing", models.RenderedContent{})
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// VARIABLES AND TEMPLATES
// =============================================================================

func TestVariables(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.WipeData(ctx))

	require.NoError(t, testDB.SetVariable(ctx, "supportHours", "9-5"))
	require.NoError(t, testDB.SetVariable(ctx, "brandName", "Acme"))
	require.NoError(t, testDB.SetVariable(ctx, "supportHours", "24/7"))

	vars, err := testDB.GetVariables(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"supportHours": "24/7", "brandName": "Acme"}, vars)

	list, err := testDB.ListVariables(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "brandName", list[0].Key)
}

func TestTemplates(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.WipeData(ctx))

	for _, tpl := range models.DefaultTemplates() {
		require.NoError(t, testDB.UpsertTemplate(ctx, tpl))
	}
	require.NoError(t, testDB.IncrementTemplateUsage(ctx, "how-to"))
	// Re-import keeps the counter
	require.NoError(t, testDB.UpsertTemplate(ctx, models.DefaultTemplates()[1]))

	got, err := testDB.GetTemplate(ctx, "how-to")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.UsageCount)

	all, err := testDB.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assert.ErrorIs(t, testDB.IncrementTemplateUsage(ctx, "missing"), ErrNotFound)
}

// =============================================================================
// BATCHES
// =============================================================================

func TestBatchLifecycle(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.WipeData(ctx))

	batch := models.BulkUpdateBatch{
		ID: "b1", VariableKey: "supportHours", OldValue: "9-5", NewValue: "24/7",
		Status: models.BatchPending, AffectedCount: 3,
	}
	require.NoError(t, testDB.CreateBatch(ctx, batch, []string{"d1", "d2", "d3"}))

	started, err := testDB.StartBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BatchProcessing, started.Status)

	_, moved, err := testDB.FinishItem(ctx, "b1", "d1", true, "")
	require.NoError(t, err)
	assert.True(t, moved)

	// A redelivered outcome for the same item changes nothing
	b, moved, err := testDB.FinishItem(ctx, "b1", "d1", false, "late")
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 1, b.UpdatedCount)
	assert.Equal(t, 0, b.FailedCount)

	_, _, err = testDB.FinishItem(ctx, "b1", "d2", false, "render failed")
	require.NoError(t, err)
	b, _, err = testDB.FinishItem(ctx, "b1", "d3", true, "")
	require.NoError(t, err)
	assert.Equal(t, models.BatchCompleted, b.Status)
	assert.NotNil(t, b.CompletedAt)

	failed := models.ItemFailed
	items, err := testDB.ListItems(ctx, "b1", &failed)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "d2", items[0].DocumentID)
	require.NotNil(t, items[0].ErrorMessage)
	assert.Equal(t, "render failed", *items[0].ErrorMessage)

	ids, b, err := testDB.ResetFailedItems(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, ids)
	assert.Equal(t, models.BatchProcessing, b.Status)
	assert.Equal(t, 0, b.FailedCount)
	assert.Nil(t, b.CompletedAt)

	b, _, err = testDB.FinishItem(ctx, "b1", "d2", true, "")
	require.NoError(t, err)
	assert.Equal(t, models.BatchCompleted, b.Status)
	assert.Equal(t, 3, b.UpdatedCount)

	item, err := testDB.GetItem(ctx, "b1", "d2")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Attempts)
}

func TestStartEmptyBatchCompletes(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.WipeData(ctx))

	require.NoError(t, testDB.CreateBatch(ctx, models.BulkUpdateBatch{
		ID: "empty", VariableKey: "k", Status: models.BatchPending,
	}, nil))

	b, err := testDB.StartBatch(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, models.BatchCompleted, b.Status)
}

func TestFinishItemConcurrentCompletesOnce(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.WipeData(ctx))

	const n = 20
	docs := make([]string, n)
	for i := range docs {
		docs[i] = fmt.Sprintf("doc%02d", i)
	}
	require.NoError(t, testDB.CreateBatch(ctx, models.BulkUpdateBatch{
		ID: "conc", VariableKey: "k", Status: models.BatchPending, AffectedCount: n,
	}, docs))
	_, err := testDB.StartBatch(ctx, "conc")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, d := range docs {
		wg.Add(1)
		go func(doc string) {
			defer wg.Done()
			_, _, err := testDB.FinishItem(ctx, "conc", doc, true, "")
			assert.NoError(t, err)
		}(d)
	}
	wg.Wait()

	b, err := testDB.GetBatch(ctx, "conc")
	require.NoError(t, err)
	assert.Equal(t, n, b.UpdatedCount)
	assert.Equal(t, models.BatchCompleted, b.Status)
}

func TestCancelBatch(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.WipeData(ctx))

	require.NoError(t, testDB.CreateBatch(ctx, models.BulkUpdateBatch{
		ID: "c1", VariableKey: "k", Status: models.BatchPending, AffectedCount: 1,
	}, []string{"d1"}))
	_, err := testDB.StartBatch(ctx, "c1")
	require.NoError(t, err)

	b, err := testDB.CancelBatch(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.BatchCancelled, b.Status)

	// Finishing an item of a cancelled batch never completes it
	b, _, err = testDB.FinishItem(ctx, "c1", "d1", true, "")
	require.NoError(t, err)
	assert.Equal(t, models.BatchCancelled, b.Status)

	_, err = testDB.CancelBatch(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// TRANSLATIONS
// =============================================================================

func TestTranslations(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.WipeData(ctx))

	rec := models.TranslationRecord{
		DocumentID: "d1", LanguageCode: "de",
		TranslatedTitle: "Leitfaden", TranslatedBody: "## Einleitung",
	}
	require.NoError(t, testDB.CreateTranslation(ctx, rec))
	assert.ErrorIs(t, testDB.CreateTranslation(ctx, rec), ErrAlreadyExists)

	exists, err := testDB.TranslationExists(ctx, "d1", "de")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = testDB.TranslationExists(ctx, "d1", "fr")
	require.NoError(t, err)
	assert.False(t, exists)

	list, err := testDB.ListTranslations(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Leitfaden", list[0].TranslatedTitle)
}
