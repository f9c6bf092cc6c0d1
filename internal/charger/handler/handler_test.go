package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"topcharger/internal/authority"
	"topcharger/internal/charger"
	"topcharger/internal/charger/handler/mocks"
	"topcharger/pkg/domain"
	dErrors "topcharger/pkg/domain-errors"
	tu "topcharger/pkg/testutil"
)

func TestParseSearch(t *testing.T) {
	owner := domain.HashExternalID("host")

	t.Run("all filters", func(t *testing.T) {
		filter, page, err := parseSearch(url.Values{
			"owner":        {owner.String()},
			"supply":       {"DC"},
			"status":       {"available"},
			"min_power_kw": {"50"},
			"page":         {"2"},
			"page_size":    {"10"},
		})
		require.NoError(t, err)
		require.NotNil(t, filter.Owner)
		assert.Equal(t, owner, *filter.Owner)
		assert.Equal(t, charger.SupplyDC, *filter.Supply)
		assert.Equal(t, charger.StatusAvailable, *filter.Status)
		assert.Equal(t, uint16(50), filter.MinPowerKW)
		assert.Equal(t, charger.Page{Page: 2, PageSize: 10}, page)
	})

	t.Run("empty query", func(t *testing.T) {
		filter, page, err := parseSearch(url.Values{})
		require.NoError(t, err)
		assert.Equal(t, charger.Filter{}, filter)
		assert.Equal(t, charger.Page{}, page)
	})

	for name, q := range map[string]url.Values{
		"bad owner":     {"owner": {"abc"}},
		"bad supply":    {"supply": {"solar"}},
		"bad status":    {"status": {"broken"}},
		"power too big": {"min_power_kw": {"70000"}},
		"bad page":      {"page": {"one"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := parseSearch(q)
			require.Error(t, err)
			assert.NotEqual(t, dErrors.CodeInternal, dErrors.CodeOf(err))
		})
	}
}

func TestHandleCreate(t *testing.T) {
	owner := domain.HashExternalID("host")
	caller := authority.AuthorizedIdentity{Authority: "host-wallet"}
	ctrl := gomock.NewController(t)
	service := mocks.NewMockService(ctrl)
	r := chi.NewRouter()
	New(service, slog.New(slog.NewTextHandler(io.Discard, nil))).
		Register(r, func(next http.Handler) http.Handler { return next })

	t.Run("supply is required", func(t *testing.T) {
		req := tu.WithAuthority(tu.NewJSONRequest(t, http.MethodPost, "/v1/chargers", map[string]any{
			"owner": owner.String(), "charger_id": 1, "power_kw": 50, "price": 100, "location": "Depot",
		}), "host-wallet")
		tu.AssertStatusAndError(t, tu.DoRequest(r, req), http.StatusBadRequest, "validation_error")
	})

	t.Run("non host owner", func(t *testing.T) {
		service.EXPECT().ListCharger(gomock.Any(), caller, charger.ListChargerRequest{
			Owner: owner, ChargerID: 1, PowerKW: 50, Supply: charger.SupplyAC, Price: 100, Location: "Depot",
		}).Return(nil, dErrors.New(dErrors.CodeForbidden, "owner is not a registered host controlled by the caller"))

		req := tu.WithAuthority(tu.NewJSONRequest(t, http.MethodPost, "/v1/chargers", map[string]any{
			"owner": owner.String(), "charger_id": 1, "power_kw": 50, "supply": "ac", "price": 100, "location": "Depot",
		}), "host-wallet")
		tu.AssertStatusAndError(t, tu.DoRequest(r, req), http.StatusForbidden, "forbidden")
	})
}
