package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/deposit-auction-client/internal/api"
	"github.com/DoyleJ11/deposit-auction-client/internal/session"
	"github.com/DoyleJ11/deposit-auction-client/internal/token"
	"github.com/DoyleJ11/deposit-auction-client/internal/types"
	"github.com/DoyleJ11/deposit-auction-client/internal/ws"
	auction "github.com/DoyleJ11/deposit-auction-client/pkg/types"
)

const maxBody = 1 << 20

var errBadBody = errors.New("bad request body")

// Auth is the slice of the REST client the bridge exposes.
type Auth interface {
	Login(ctx context.Context, email, password string) (api.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (api.User, error)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, session.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidCommand),
		errors.Is(err, ws.ErrUnknownMessage),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, token.ErrNoCredential):
		return http.StatusUnauthorized
	case errors.Is(err, token.ErrInvalidToken), errors.Is(err, token.ErrExpired):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrClosed), errors.Is(err, session.ErrOutboxFull):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		if api.IsAuth(err) {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func State(f ws.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, f.View())
	}
}

func Login(a Auth, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decode(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if body.Email == "" || body.Password == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: email and password are required", errBadBody))
			return
		}

		u, err := a.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			logger.Info("login failed", zap.Error(err))
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func Logout(a Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.Logout(r.Context()); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Me(a Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := a.Me(r.Context())
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// Command turns a request into a client message and dispatches it. Commands
// are fire-and-forget on the socket, so success is 202.
func Command(f ws.Facade, build func(r *http.Request) (types.ClientMessage, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := build(r)
		if err == nil {
			err = ws.Dispatch(r.Context(), f, m)
		}
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func simple(msgType string) func(*http.Request) (types.ClientMessage, error) {
	return func(*http.Request) (types.ClientMessage, error) {
		return types.ClientMessage{Type: msgType}, nil
	}
}

func forAuction(msgType string) func(*http.Request) (types.ClientMessage, error) {
	return func(r *http.Request) (types.ClientMessage, error) {
		return types.ClientMessage{Type: msgType, AuctionID: chi.URLParam(r, "id")}, nil
	}
}

func createAuction(r *http.Request) (types.ClientMessage, error) {
	var data auction.CreateAuctionData
	if err := decode(r, &data); err != nil {
		return types.ClientMessage{}, err
	}
	return types.ClientMessage{Type: types.MsgCreateAuction, Auction: &data}, nil
}

func closeAuction(r *http.Request) (types.ClientMessage, error) {
	var body struct {
		OfferID string `json:"offer_id"`
	}
	if err := decode(r, &body); err != nil {
		return types.ClientMessage{}, err
	}
	return types.ClientMessage{Type: types.MsgCloseAuction, AuctionID: chi.URLParam(r, "id"), OfferID: body.OfferID}, nil
}

func createLot(r *http.Request) (types.ClientMessage, error) {
	var data auction.CreateLotData
	if err := decode(r, &data); err != nil {
		return types.ClientMessage{}, err
	}
	return types.ClientMessage{Type: types.MsgCreateLot, Lot: &data}, nil
}

func createOffer(r *http.Request) (types.ClientMessage, error) {
	var body struct {
		Percent float64 `json:"percent"`
		Volume  float64 `json:"volume"`
	}
	if err := decode(r, &body); err != nil {
		return types.ClientMessage{}, err
	}
	return types.ClientMessage{
		Type:    types.MsgCreateOffer,
		LotID:   chi.URLParam(r, "id"),
		Percent: body.Percent,
		Volume:  body.Volume,
	}, nil
}

func closeLot(r *http.Request) (types.ClientMessage, error) {
	var body struct {
		AuctionID string `json:"auction_id"`
	}
	if err := decode(r, &body); err != nil {
		return types.ClientMessage{}, err
	}
	return types.ClientMessage{Type: types.MsgCloseLot, LotID: chi.URLParam(r, "id"), AuctionID: body.AuctionID}, nil
}

func cancelOffer(r *http.Request) (types.ClientMessage, error) {
	return types.ClientMessage{Type: types.MsgCancelOffer, OfferID: chi.URLParam(r, "id")}, nil
}
