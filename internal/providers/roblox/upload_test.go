package roblox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"capedash/internal/domain"
)

func TestUploadDecalPollsOperation(t *testing.T) {
	var polls atomic.Int32
	var meta assetCreateRequest
	var fileBytes []byte
	mux := http.NewServeMux()
	mux.HandleFunc("/assets/v1/assets", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "secret", r.Header.Get("x-api-key"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("request")), &meta))
		f, _, err := r.FormFile("fileContent")
		require.NoError(t, err)
		fileBytes, _ = io.ReadAll(f)
		_, _ = w.Write([]byte(`{"path":"operations/op-1","done":false}`))
	})
	mux.HandleFunc("/assets/v1/operations/op-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 2 {
			_, _ = w.Write([]byte(`{"path":"operations/op-1","done":false}`))
			return
		}
		_, _ = w.Write([]byte(`{"path":"operations/op-1","done":true,"response":{"assetId":"123456789"}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	up := NewUploader(UploaderOptions{
		APIKey:       "secret",
		CreatorID:    "42",
		BaseURL:      server.URL,
		PollInterval: time.Millisecond,
	})
	assetID, err := up.UploadDecal(context.Background(), DecalRequest{
		DisplayName: "Cape Upload - 20240101_000000",
		Description: "Cape uploaded via website",
		Data:        []byte("PNGDATA"),
	})
	require.NoError(t, err)
	require.EqualValues(t, "123456789", assetID)
	require.EqualValues(t, 2, polls.Load())
	require.Equal(t, "Decal", meta.AssetType)
	require.Equal(t, "42", meta.CreationContext.Creator.UserID)
	require.Empty(t, meta.CreationContext.Creator.GroupID)
	require.Equal(t, []byte("PNGDATA"), fileBytes)
}

func TestUploadDecalGroupCreator(t *testing.T) {
	var meta assetCreateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("request")), &meta))
		_, _ = w.Write([]byte(`{"path":"operations/op-2","done":true,"response":{"assetId":"222"}}`))
	}))
	defer server.Close()

	up := NewUploader(UploaderOptions{APIKey: "k", CreatorID: "7", ToGroup: true, BaseURL: server.URL})
	assetID, err := up.UploadDecal(context.Background(), DecalRequest{Data: []byte{1}})
	require.NoError(t, err)
	require.EqualValues(t, "222", assetID)
	require.Equal(t, "7", meta.CreationContext.Creator.GroupID)
}

func TestUploadDecalOperationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"path":"operations/op-3","done":true,"error":{"code":3,"message":"moderated"}}`))
	}))
	defer server.Close()

	up := NewUploader(UploaderOptions{APIKey: "k", CreatorID: "7", BaseURL: server.URL})
	_, err := up.UploadDecal(context.Background(), DecalRequest{Data: []byte{1}})
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrProviderFailure))
}

func TestUploadDecalRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	up := NewUploader(UploaderOptions{APIKey: "k", CreatorID: "7", BaseURL: server.URL})
	_, err := up.UploadDecal(context.Background(), DecalRequest{Data: []byte{1}})
	require.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestUploadDecalRequiresCredentialsAndData(t *testing.T) {
	_, err := NewUploader(UploaderOptions{}).UploadDecal(context.Background(), DecalRequest{Data: []byte{1}})
	require.ErrorIs(t, err, ErrMissingCredentials)
	require.ErrorIs(t, err, domain.ErrUploadUnavailable)

	_, err = NewUploader(UploaderOptions{APIKey: "k", CreatorID: "1"}).UploadDecal(context.Background(), DecalRequest{})
	require.ErrorIs(t, err, domain.ErrEmptyFile)
}
