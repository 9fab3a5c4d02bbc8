package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/penaltyhub/internal/adapters/http/api"
	"github.com/okian/penaltyhub/internal/adapters/mq/queue"
	service "github.com/okian/penaltyhub/internal/app"
	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/internal/domain/rules"
	"github.com/okian/penaltyhub/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fullQueue rejects every update as if the queue were saturated.
type fullQueue struct {
	api.Dependencies
	calls int
}

func (f *fullQueue) SubmitUpdate(context.Context, model.Update) (service.Submission, error) {
	f.calls++
	return service.Submission{}, queue.ErrFull
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps api.Dependencies, stats api.StatsProvider) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, stats).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.NewDecoder(w.Body).Decode(&v), ShouldBeNil)
	return v
}

func startService() *service.Service {
	svc := service.New(
		service.WithWorkerCount(2),
		service.WithQueueSize(100),
		service.WithRuleCatalogue(rules.Defaults()),
	)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestServer_Health(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		svc := startService()
		defer svc.Stop()
		mux := newMux(svc, &mockStatsProvider{stats: map[string]interface{}{"started": true}})

		Convey("When scraping /healthz", func() {
			w := do(mux, http.MethodGet, "/healthz", nil)

			Convey("Then the engine metrics are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "penaltyhub_")
			})
		})

		Convey("When reading /stats", func() {
			w := do(mux, http.MethodGet, "/stats", nil)

			Convey("Then the provider's stats are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				got := decode[map[string]interface{}](w)
				So(got["started"], ShouldEqual, true)
			})
		})

		Convey("When using the wrong method", func() {
			w := do(mux, http.MethodPost, "/stats", nil)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_Rules(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		svc := startService()
		defer svc.Stop()
		mux := newMux(svc, svc)

		Convey("When listing the catalogue", func() {
			w := do(mux, http.MethodGet, "/rules", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			rs := decode[[]model.Rule](w)
			So(len(rs), ShouldEqual, len(rules.Defaults()))
		})

		Convey("When creating, replacing and deleting a rule", func() {
			w := do(mux, http.MethodPost, "/rules", map[string]any{
				"variable": "post_hits", "operator": ">", "value": 0,
				"action": "add_fixed", "action_value": 0.5, "description": "Woodwork",
			})
			So(w.Code, ShouldEqual, http.StatusCreated)
			created := decode[model.Rule](w)

			w = do(mux, http.MethodPut, "/rules/"+created.ID, map[string]any{
				"variable": "post_hits", "operator": ">", "value": 1,
				"action": "add_fixed", "action_value": 1.0, "description": "Woodwork twice",
			})
			So(w.Code, ShouldEqual, http.StatusOK)
			replaced := decode[model.Rule](w)

			Convey("Then the replacement has a new id and the old one is gone", func() {
				So(replaced.ID, ShouldNotEqual, created.ID)
				So(do(mux, http.MethodDelete, "/rules/"+created.ID, nil).Code, ShouldEqual, http.StatusNotFound)
				So(do(mux, http.MethodDelete, "/rules/"+replaced.ID, nil).Code, ShouldEqual, http.StatusNoContent)
			})
		})

		Convey("When the draft is invalid", func() {
			w := do(mux, http.MethodPost, "/rules", map[string]any{
				"variable": "goal_count", "operator": "~", "value": 1, "action": "add_fixed", "description": "x",
			})

			Convey("Then a bad request is returned with an error body", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decode[map[string]string](w)
				So(body["code"], ShouldEqual, "bad_request")
				So(body["message"], ShouldStartWith, "api.create_rule: bad request: ")
			})
		})

		Convey("When the body is not JSON", func() {
			req := httptest.NewRequest(http.MethodPost, "/rules", strings.NewReader("{"))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_MatchFlow(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		svc := startService()
		defer svc.Stop()
		mux := newMux(svc, svc)

		w := do(mux, http.MethodPost, "/matches", map[string]any{
			"name": "Thursday five", "date": "2026-10-15", "time": "20:00",
			"total_cost": 40, "match_type": 2, "organizer": "Org", "fine_allocation": "split",
		})
		So(w.Code, ShouldEqual, http.StatusCreated)
		m := decode[model.Match](w)
		base := "/matches/" + m.ID

		for _, reg := range []model.Registration{
			{UserID: "u1", Name: "Org"},
			{UserID: "u2", Name: "Bea"},
			{UserID: "u3", Name: "Cy"},
			{UserID: "u4", Name: "Dan"},
		} {
			So(do(mux, http.MethodPost, base+"/registrations", reg).Code, ShouldEqual, http.StatusOK)
		}
		So(do(mux, http.MethodPost, base+"/start", nil).Code, ShouldEqual, http.StatusOK)

		Convey("When a late arrival is posted twice", func() {
			body := map[string]any{"update_id": "late-1", "participant_id": "u2", "arrival_time": "20:10"}
			first := do(mux, http.MethodPost, base+"/updates", body)
			second := do(mux, http.MethodPost, base+"/updates", body)

			Convey("Then it is accepted once and acknowledged as a duplicate", func() {
				So(first.Code, ShouldEqual, http.StatusAccepted)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(decode[map[string]any](second)["duplicate"], ShouldEqual, true)
			})

			Convey("And the fine shows up on the match", func() {
				var p *model.Participant
				for i := 0; i < 100; i++ {
					got := decode[model.Match](do(mux, http.MethodGet, base, nil))
					p, _ = got.Participant("u2")
					if p.TotalFine == 10 {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				So(p.TotalFine, ShouldEqual, 10)
			})
		})

		Convey("When updates are malformed or target unknown players", func() {
			So(do(mux, http.MethodPost, base+"/updates", map[string]any{"arrival_time": "20:10"}).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, base+"/updates", map[string]any{"participant_id": "u2", "team": "C"}).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, base+"/updates", map[string]any{"participant_id": "zz"}).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/matches/nope/updates", map[string]any{"participant_id": "u2"}).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When teams are suggested and applied", func() {
			w := do(mux, http.MethodGet, base+"/teams", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			res := decode[map[string][]model.Participant](w)
			So(len(res["team_a"]), ShouldEqual, 2)
			So(len(res["team_b"]), ShouldEqual, 2)

			So(do(mux, http.MethodPost, base+"/teams", nil).Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the match is scored, voted and closed", func() {
			So(do(mux, http.MethodPost, base+"/rules/toggle", map[string]any{"rule_id": "late_arrival"}).Code, ShouldEqual, http.StatusOK)
			So(do(mux, http.MethodPost, base+"/score", map[string]any{"score_a": 4, "score_b": 1}).Code, ShouldEqual, http.StatusOK)
			So(do(mux, http.MethodPost, base+"/close", nil).Code, ShouldEqual, http.StatusConflict)
			So(do(mux, http.MethodPost, base+"/voting", nil).Code, ShouldEqual, http.StatusOK)
			for _, u := range []string{"u1", "u2", "u3", "u4"} {
				So(do(mux, http.MethodPost, base+"/confirmations", map[string]any{"user_id": u}).Code, ShouldEqual, http.StatusOK)
				So(do(mux, http.MethodPost, base+"/votes", model.Vote{VoterID: u, MVPID: "Cy", LVPID: "Dan"}).Code, ShouldEqual, http.StatusOK)
			}
			w := do(mux, http.MethodPost, base+"/close", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			closed := decode[struct {
				Match        model.Match         `json:"match"`
				Transactions []model.Transaction `json:"transactions"`
			}](w)

			Convey("Then the ledger and stats endpoints reflect it", func() {
				So(closed.Match.Status, ShouldEqual, model.StatusClosed)
				So(len(closed.Transactions), ShouldEqual, 3)

				txs := decode[[]model.Transaction](do(mux, http.MethodGet, "/ledger?name=Bea", nil))
				So(len(txs), ShouldEqual, 1)

				bal := decode[map[string]any](do(mux, http.MethodGet, "/ledger/balance/Bea", nil))
				So(bal["debt"], ShouldEqual, "10")

				So(do(mux, http.MethodPost, "/ledger/"+txs[0].ID+"/paid", nil).Code, ShouldEqual, http.StatusOK)
				So(do(mux, http.MethodPost, "/ledger/missing/paid", nil).Code, ShouldEqual, http.StatusNotFound)

				fund := decode[map[string]any](do(mux, http.MethodGet, "/fund", nil))
				So(fund["balance"], ShouldEqual, "0")

				st := decode[[]model.UserStats](do(mux, http.MethodGet, "/players/stats?name=Cy&name=Dan", nil))
				So(len(st), ShouldEqual, 2)
				So(st[0].MVPCount, ShouldEqual, 1)
				So(st[1].LVPCount, ShouldEqual, 1)
			})

			Convey("And further changes conflict", func() {
				So(do(mux, http.MethodPost, base+"/score", map[string]any{"score_a": 0, "score_b": 0}).Code, ShouldEqual, http.StatusConflict)
				So(do(mux, http.MethodPost, base+"/updates", map[string]any{"participant_id": "u2"}).Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When a score is missing", func() {
			So(do(mux, http.MethodPost, base+"/score", map[string]any{"score_a": 1}).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_Bets(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		svc := startService()
		defer svc.Stop()
		mux := newMux(svc, svc)

		Convey("When a bet is proposed and settled", func() {
			w := do(mux, http.MethodPost, "/bets", map[string]any{
				"description": "Dan misses the penalty", "proposer": "Bea",
				"participants": []string{"Dan"}, "monetary_value": "5", "stake_category": "drink",
			})
			So(w.Code, ShouldEqual, http.StatusCreated)
			b := decode[model.Bet](w)

			w = do(mux, http.MethodPost, "/bets/"+b.ID+"/settle", map[string]any{"winner": "Bea"})

			Convey("Then the loser owes the winner", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				res := decode[map[string]any](w)
				So(len(res["transactions"].([]any)), ShouldEqual, 1)

				again := do(mux, http.MethodPost, "/bets/"+b.ID+"/settle", map[string]any{"winner": "Bea"})
				So(again.Code, ShouldEqual, http.StatusConflict)

				list := decode[[]model.Bet](do(mux, http.MethodGet, "/bets", nil))
				So(list[0].Status, ShouldEqual, model.BetWon)
			})
		})

		Convey("When settling with an unknown winner or bet", func() {
			So(do(mux, http.MethodPost, "/bets/nope/settle", map[string]any{"winner": "Bea"}).Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/bets/nope/settle", map[string]any{}).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_Backpressure(t *testing.T) {
	Convey("Given a server whose update queue is full", t, func() {
		deps := &fullQueue{}
		mux := newMux(deps, &mockStatsProvider{})

		Convey("When an update is posted", func() {
			w := do(mux, http.MethodPost, "/matches/m1/updates", map[string]any{"participant_id": "u1"})

			Convey("Then the client is told to back off", func() {
				So(deps.calls, ShouldEqual, 1)
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode[map[string]string](w)["code"], ShouldEqual, "backpressure")
			})
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given API errors", t, func() {
		cause := fmt.Errorf("match m1: %w", errors.New("boom"))

		Convey("Then they read op, kind and cause and unwrap to both", func() {
			err := api.WrapKind("api.x", api.ErrConflict, cause)
			So(err.Error(), ShouldEqual, "api.x: conflict: match m1: boom")
			So(errors.Is(err, api.ErrConflict), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)

			So(api.NewKind("api.y", api.ErrBadRequest).Error(), ShouldEqual, "api.y: bad request")
			So(api.Wrap("api.z", nil), ShouldBeNil)
			So(api.Wrap("api.z", cause).Error(), ShouldEqual, "api.z: match m1: boom")
		})
	})
}
