package cart

import (
	"net/http"

	cartdto "github.com/angelmondragon/tradeledger/api/controllers/cart/dto"
	"github.com/angelmondragon/tradeledger/api/middleware"
	"github.com/angelmondragon/tradeledger/api/responses"
	"github.com/angelmondragon/tradeledger/api/validators"
	cartsvc "github.com/angelmondragon/tradeledger/internal/cart"
	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
	"github.com/angelmondragon/tradeledger/pkg/logger"
)

// Summary groups the posted cart by seller and quotes the caller's credit per group.
func Summary(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		actor, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartdto.SummaryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summarize(r.Context(), actor.AccountID, payload.ToLines())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartdto.NewSummary(summary))
	}
}
