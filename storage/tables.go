package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
)

// A string property holds at most 64 KiB of UTF-16, so documents are split
// into chunks of tableChunkBytes UTF-8 bytes stored as Value, Value1, ...
// The 1 MiB entity limit caps the chunk count.
const (
	tableChunkBytes = 30 << 10
	maxTableChunks  = 30
)

// ErrDocumentTooLarge is returned when a document does not fit in one entity.
var ErrDocumentTooLarge = errors.New("document exceeds the table entity size limit")

// Tables keeps each document as one entity of an Azure table. All entities
// share a partition so multi-key writes can run as a single batch.
type Tables struct {
	client    tableClient
	partition string
}

type tableClient interface {
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	SubmitTransaction(ctx context.Context, actions []aztables.TransactionAction, options *aztables.SubmitTransactionOptions) (aztables.TransactionResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
}

// NewTables connects to table on the account in connStr, creating the table
// when it does not exist yet.
func NewTables(ctx context.Context, connStr, table, partition string) (*Tables, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: 15 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	client := svc.NewClient(table)
	if _, err := client.CreateTable(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
			return nil, err
		}
	}
	return &Tables{client: client, partition: partition}, nil
}

// Ping reads a sentinel row; a missing row still proves the table answers.
func (t *Tables) Ping(ctx context.Context) error {
	_, _, err := t.Get(ctx, "healthz")
	return err
}

func (t *Tables) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp, err := t.client.GetEntity(ctx, t.partition, key, nil)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var props map[string]any
	if err := sonic.Unmarshal(resp.Value, &props); err != nil {
		return nil, false, err
	}
	var b strings.Builder
	for i := 0; ; i++ {
		chunk, ok := props[valueProperty(i)].(string)
		if !ok {
			break
		}
		b.WriteString(chunk)
	}
	return []byte(b.String()), true, nil
}

func (t *Tables) Set(ctx context.Context, key string, value []byte) error {
	data, err := t.entity(key, value)
	if err != nil {
		return err
	}
	_, err = t.client.UpsertEntity(ctx, data, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

func (t *Tables) SetMany(ctx context.Context, docs map[string][]byte) error {
	if len(docs) == 0 {
		return nil
	}
	actions := make([]aztables.TransactionAction, 0, len(docs))
	for key, value := range docs {
		data, err := t.entity(key, value)
		if err != nil {
			return err
		}
		actions = append(actions, aztables.TransactionAction{
			ActionType: aztables.TransactionTypeInsertReplace,
			Entity:     data,
		})
	}
	_, err := t.client.SubmitTransaction(ctx, actions, nil)
	return err
}

func (t *Tables) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := t.client.DeleteEntity(ctx, t.partition, key, nil); err != nil && !isStatus(err, http.StatusNotFound) {
			return err
		}
	}
	return nil
}

func (t *Tables) entity(key string, value []byte) ([]byte, error) {
	chunks := splitChunks(string(value), tableChunkBytes)
	if len(chunks) > maxTableChunks {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrDocumentTooLarge, key, len(value))
	}
	props := map[string]any{
		"PartitionKey": t.partition,
		"RowKey":       key,
		"Value":        "",
	}
	for i, chunk := range chunks {
		props[valueProperty(i)] = chunk
	}
	return sonic.Marshal(props)
}

func valueProperty(i int) string {
	if i == 0 {
		return "Value"
	}
	return "Value" + strconv.Itoa(i)
}

// splitChunks cuts s into pieces of at most size bytes without splitting a
// rune.
func splitChunks(s string, size int) []string {
	var out []string
	for len(s) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

func isStatus(err error, status int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == status
}
