package remote_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bivex/storekit-manager/internal/domain/entity"
	domainErrors "github.com/bivex/storekit-manager/internal/domain/errors"
	"github.com/bivex/storekit-manager/internal/domain/service"
	"github.com/bivex/storekit-manager/internal/infrastructure/dispatch"
	"github.com/bivex/storekit-manager/internal/infrastructure/platform/remote"
)

type recordedRequest struct {
	method string
	path   string
	apiKey string
	body   map[string]interface{}
}

func newGateway(t *testing.T, status int, reply string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var recorded []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body := map[string]interface{}{}
		_ = json.Unmarshal(raw, &body)
		recorded = append(recorded, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			apiKey: r.Header.Get("X-Api-Key"),
			body:   body,
		})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)

	return srv, &recorded
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("QueryProducts posts identifiers with request id", func(t *testing.T) {
		srv, recorded := newGateway(t, http.StatusAccepted, `{}`)
		client := remote.NewClient(srv.URL, "secret", time.Second, zap.NewNop())
		requestID := uuid.New()

		err := client.QueryProducts(ctx, requestID, []string{"com.app.pro"})
		require.NoError(t, err)

		require.Len(t, *recorded, 1)
		got := (*recorded)[0]
		assert.Equal(t, http.MethodPost, got.method)
		assert.Equal(t, "/v1/products/query", got.path)
		assert.Equal(t, "secret", got.apiKey)
		assert.Equal(t, requestID.String(), got.body["request_id"])
		assert.Equal(t, []interface{}{"com.app.pro"}, got.body["identifiers"])
	})

	t.Run("AddPayment posts the product identifier", func(t *testing.T) {
		srv, recorded := newGateway(t, http.StatusAccepted, `{}`)
		client := remote.NewClient(srv.URL, "", time.Second, zap.NewNop())

		require.NoError(t, client.AddPayment(ctx, &entity.Product{Identifier: "com.app.pro"}))

		got := (*recorded)[0]
		assert.Equal(t, "/v1/payments", got.path)
		assert.Equal(t, "com.app.pro", got.body["product_id"])
		assert.Empty(t, got.apiKey)
	})

	t.Run("FinishTransaction uses the transaction id in the path", func(t *testing.T) {
		srv, recorded := newGateway(t, http.StatusNoContent, ``)
		client := remote.NewClient(srv.URL, "", time.Second, zap.NewNop())

		require.NoError(t, client.FinishTransaction(ctx, &entity.Transaction{ID: "t-42"}))
		assert.Equal(t, "/v1/transactions/t-42/finish", (*recorded)[0].path)
	})

	t.Run("RestoreCompletedTransactions posts to restore", func(t *testing.T) {
		srv, recorded := newGateway(t, http.StatusAccepted, `{}`)
		client := remote.NewClient(srv.URL, "", time.Second, zap.NewNop())

		require.NoError(t, client.RestoreCompletedTransactions(ctx))
		assert.Equal(t, "/v1/transactions/restore", (*recorded)[0].path)
	})

	t.Run("gateway error body becomes a platform error", func(t *testing.T) {
		srv, _ := newGateway(t, http.StatusForbidden, `{"code":"payment_not_allowed","message":"parental controls"}`)
		client := remote.NewClient(srv.URL, "", time.Second, zap.NewNop())

		err := client.AddPayment(ctx, &entity.Product{Identifier: "com.app.pro"})
		require.Error(t, err)
		assert.Equal(t, domainErrors.CodePaymentNotAllowed, domainErrors.CodeOf(err))
	})

	t.Run("gateway error without body is unknown", func(t *testing.T) {
		srv, _ := newGateway(t, http.StatusInternalServerError, `{}`)
		client := remote.NewClient(srv.URL, "", time.Second, zap.NewNop())

		err := client.RestoreCompletedTransactions(ctx)
		assert.Equal(t, domainErrors.CodeUnknown, domainErrors.CodeOf(err))
	})

	t.Run("transport failure is a network error", func(t *testing.T) {
		srv, _ := newGateway(t, http.StatusOK, `{}`)
		url := srv.URL
		srv.Close()
		client := remote.NewClient(url, "", time.Second, zap.NewNop())

		err := client.QueryProducts(ctx, uuid.New(), []string{"a"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domainErrors.ErrPlatformUnavailable)
	})
}

type stubSource struct {
	events []service.Event
}

func (s stubSource) Run(_ context.Context, sink service.EventSink) error {
	for _, e := range s.events {
		sink.HandleEvent(e)
	}
	return nil
}

type recordingSink struct {
	events []service.Event
}

func (s *recordingSink) HandleEvent(event service.Event) {
	s.events = append(s.events, event)
}

func TestClientListen(t *testing.T) {
	client := remote.NewClient("http://127.0.0.1:0", "", time.Second, zap.NewNop())
	source := stubSource{events: []service.Event{service.RestoreCompletedEvent{}}}

	err := client.Listen(context.Background(), source)
	assert.Error(t, err)

	sink := &recordingSink{}
	client.SetEventSink(sink)
	require.NoError(t, client.Listen(context.Background(), source))
	assert.Equal(t, []service.Event{service.RestoreCompletedEvent{}}, sink.events)
}

type channelSink chan service.Event

func (s channelSink) HandleEvent(event service.Event) {
	s <- event
}

func TestClientQueryExpiry(t *testing.T) {
	ctx := context.Background()

	t.Run("unanswered query is reported as a network failure", func(t *testing.T) {
		srv, _ := newGateway(t, http.StatusAccepted, `{}`)
		client := remote.NewClient(srv.URL, "", time.Second, zap.NewNop()).SetResponseTimeout(20 * time.Millisecond)
		sink := make(channelSink, 1)
		client.SetEventSink(sink)

		requestID := uuid.New()
		require.NoError(t, client.QueryProducts(ctx, requestID, []string{"com.app.pro"}))

		select {
		case event := <-sink:
			failed, ok := event.(service.ProductsFailedEvent)
			require.True(t, ok)
			assert.Equal(t, requestID, failed.RequestID)
			assert.Equal(t, domainErrors.CodeNetwork, domainErrors.CodeOf(failed.Err))
		case <-time.After(time.Second):
			t.Fatal("expected a failure event")
		}
		assert.Equal(t, 0, client.PendingQueries())
	})

	t.Run("response event settles the query", func(t *testing.T) {
		srv, _ := newGateway(t, http.StatusAccepted, `{}`)
		client := remote.NewClient(srv.URL, "", time.Second, zap.NewNop()).SetResponseTimeout(50 * time.Millisecond)
		sink := make(channelSink, 2)
		client.SetEventSink(sink)

		requestID := uuid.New()
		require.NoError(t, client.QueryProducts(ctx, requestID, []string{"com.app.pro"}))
		assert.Equal(t, 1, client.PendingQueries())

		response := service.ProductsResponseEvent{RequestID: requestID, InvalidIdentifiers: []string{"com.app.pro"}}
		require.NoError(t, client.Listen(ctx, stubSource{events: []service.Event{response}}))

		assert.Equal(t, 0, client.PendingQueries())
		assert.Equal(t, service.Event(response), <-sink)

		time.Sleep(100 * time.Millisecond)
		assert.Empty(t, sink)
	})

	t.Run("rejected query is not watched", func(t *testing.T) {
		srv, _ := newGateway(t, http.StatusBadRequest, `{}`)
		client := remote.NewClient(srv.URL, "", time.Second, zap.NewNop())

		require.Error(t, client.QueryProducts(ctx, uuid.New(), []string{"com.app.pro"}))
		assert.Equal(t, 0, client.PendingQueries())
	})

	t.Run("expiry releases the manager request", func(t *testing.T) {
		srv, _ := newGateway(t, http.StatusAccepted, `{}`)
		client := remote.NewClient(srv.URL, "", time.Second, zap.NewNop()).SetResponseTimeout(20 * time.Millisecond)

		queue := dispatch.NewSerialQueue(zap.NewNop())
		t.Cleanup(queue.Close)
		manager := service.NewPurchaseManager(client, queue, nil, zap.NewNop())
		require.NoError(t, manager.Start(ctx))

		failed := make(chan error, 1)
		_, err := manager.RequestProducts([]string{"com.app.pro"}, entity.CatalogHandlers{
			OnFailure: func(err error) { failed <- err },
		})
		require.NoError(t, err)

		select {
		case err := <-failed:
			assert.ErrorIs(t, err, domainErrors.ErrPlatformUnavailable)
		case <-time.After(time.Second):
			t.Fatal("expected the query to fail")
		}

		snapshot, err := manager.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, snapshot.PendingCatalogRequests)
	})
}
