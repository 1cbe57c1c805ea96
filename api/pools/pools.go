// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pools

import (
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stakewell/stakewell/api/utils"
	"github.com/stakewell/stakewell/pool"
	"github.com/stakewell/stakewell/stakewell"
)

// Pools exposes the staking ledger over REST.
type Pools struct {
	engine *pool.Engine
}

func New(engine *pool.Engine) *Pools {
	return &Pools{engine}
}

// convertError maps the ledger's error taxonomy onto http statuses.
func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case pool.IsConfigError(err):
		return utils.BadRequest(err)
	case pool.IsAuthError(err):
		return utils.Forbidden(err)
	case pool.IsCapacityError(err), pool.IsFundsError(err), pool.IsEligibilityError(err):
		return utils.Conflict(err)
	default:
		return err
	}
}

func parsePoolAddress(req *http.Request) (stakewell.Address, error) {
	addr, err := stakewell.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return stakewell.Address{}, utils.BadRequest(errors.WithMessage(err, "address"))
	}
	return addr, nil
}

// opTime resolves the operation timestamp: an explicit value from the
// request body, wall clock otherwise.
func opTime(now uint64) uint64 {
	if now != 0 {
		return now
	}
	return uint64(time.Now().Unix())
}

func orCaller(addr *stakewell.Address, caller stakewell.Address) stakewell.Address {
	if addr != nil {
		return *addr
	}
	return caller
}

func (ps *Pools) summary(addr stakewell.Address) (*Summary, error) {
	sum := &Summary{Address: addr}
	if err := ps.engine.View(addr, func(p *pool.Pool) error {
		acct, err := p.Accounting()
		if err != nil {
			return err
		}
		sum.Accounting = acct.String()
		if sum.Owner, err = p.Owner(); err != nil {
			return err
		}
		if sum.Treasury, err = p.Treasury(); err != nil {
			return err
		}
		rate, err := p.RewardRate()
		if err != nil {
			return err
		}
		sum.RewardRatePerSecond = toHexOrDecimal(rate)
		if sum.LastAccrualTime, err = p.LastAccrualTime(); err != nil {
			return err
		}
		total, err := p.TotalPrincipal()
		if err != nil {
			return err
		}
		sum.TotalPrincipal = toHexOrDecimal(total)
		switch acct {
		case pool.AccountingShares:
			shares, err := p.TotalShares()
			if err != nil {
				return err
			}
			sum.TotalShares = toHexOrDecimal(shares)
		default:
			acc, err := p.AccRewardPerUnit()
			if err != nil {
				return err
			}
			sum.AccRewardPerUnit = toHexOrDecimal(acc)
		}
		cap_, capped, err := p.StakeCap()
		if err != nil {
			return err
		}
		if capped {
			sum.StakeCap = toHexOrDecimal(cap_)
		}
		window, bps, err := p.PenaltyPolicy()
		if err != nil {
			return err
		}
		sum.EarlyWithdrawWindow = window
		sum.PenaltyRateBps = bps
		return nil
	}); err != nil {
		return nil, err
	}
	rank, err := ps.engine.RankOf(addr)
	if err != nil {
		return nil, err
	}
	sum.Rank = rank
	return sum, nil
}

func (ps *Pools) position(addr, holder stakewell.Address, now uint64) (*PositionView, error) {
	view := &PositionView{Holder: holder}
	err := ps.engine.View(addr, func(p *pool.Pool) error {
		pos, err := p.Position(holder)
		if err != nil {
			return err
		}
		view.Principal = toHexOrDecimal(pos.Principal)
		if pos.ShareBalance.Sign() > 0 {
			view.ShareBalance = toHexOrDecimal(pos.ShareBalance)
		}
		view.LastDepositTime = pos.LastDepositTime
		pending, err := p.PendingReward(holder, now)
		if err != nil {
			return err
		}
		view.PendingReward = toHexOrDecimal(pending)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (ps *Pools) handleList(w http.ResponseWriter, _ *http.Request) error {
	addrs := ps.engine.Pools()
	out := make([]*Summary, 0, len(addrs))
	for _, addr := range addrs {
		sum, err := ps.summary(addr)
		if err != nil {
			return convertError(err)
		}
		out = append(out, sum)
	}
	return utils.WriteJSON(w, out)
}

func (ps *Pools) handleGetPool(w http.ResponseWriter, req *http.Request) error {
	addr, err := parsePoolAddress(req)
	if err != nil {
		return err
	}
	sum, err := ps.summary(addr)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, sum)
}

func (ps *Pools) handleGetPosition(w http.ResponseWriter, req *http.Request) error {
	addr, err := parsePoolAddress(req)
	if err != nil {
		return err
	}
	holder, err := stakewell.ParseAddress(mux.Vars(req)["holder"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "holder"))
	}
	now := uint64(time.Now().Unix())
	if q := req.URL.Query().Get("now"); q != "" {
		if now, err = strconv.ParseUint(q, 10, 64); err != nil {
			return utils.BadRequest(errors.WithMessage(err, "now"))
		}
	}
	view, err := ps.position(addr, holder, now)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, view)
}

func (ps *Pools) handleDeposit(w http.ResponseWriter, req *http.Request) error {
	addr, err := parsePoolAddress(req)
	if err != nil {
		return err
	}
	var body DepositRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	now := opTime(body.Now)
	beneficiary := orCaller(body.Beneficiary, body.Caller)
	if err := ps.engine.Deposit(addr, body.Caller, beneficiary, fromHexOrDecimal(body.Amount), now); err != nil {
		return convertError(err)
	}
	view, err := ps.position(addr, beneficiary, now)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, view)
}

func (ps *Pools) handleWithdraw(w http.ResponseWriter, req *http.Request) error {
	addr, err := parsePoolAddress(req)
	if err != nil {
		return err
	}
	var body WithdrawRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	now := opTime(body.Now)
	if err := ps.engine.Withdraw(addr, body.Caller, orCaller(body.To, body.Caller), fromHexOrDecimal(body.Amount), now); err != nil {
		return convertError(err)
	}
	view, err := ps.position(addr, body.Caller, now)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, view)
}

func (ps *Pools) handleHarvest(w http.ResponseWriter, req *http.Request) error {
	addr, err := parsePoolAddress(req)
	if err != nil {
		return err
	}
	var body HarvestRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	now := opTime(body.Now)
	if err := ps.engine.Harvest(addr, body.Caller, orCaller(body.To, body.Caller), now); err != nil {
		return convertError(err)
	}
	view, err := ps.position(addr, body.Caller, now)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, view)
}

func (ps *Pools) handleEmergencyWithdraw(w http.ResponseWriter, req *http.Request) error {
	addr, err := parsePoolAddress(req)
	if err != nil {
		return err
	}
	var body HarvestRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	now := opTime(body.Now)
	if err := ps.engine.EmergencyWithdraw(addr, body.Caller, orCaller(body.To, body.Caller), now); err != nil {
		return convertError(err)
	}
	view, err := ps.position(addr, body.Caller, now)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, view)
}

func (ps *Pools) handleMigrate(w http.ResponseWriter, req *http.Request) error {
	addr, err := parsePoolAddress(req)
	if err != nil {
		return err
	}
	var body MigrateRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	now := opTime(body.Now)
	if err := ps.engine.Migrate(body.Caller, addr, body.Target, now); err != nil {
		return convertError(err)
	}
	view, err := ps.position(body.Target, body.Caller, now)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, view)
}

func (ps *Pools) handleSetRewardRate(w http.ResponseWriter, req *http.Request) error {
	addr, err := parsePoolAddress(req)
	if err != nil {
		return err
	}
	var body RewardRateRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := ps.engine.SetRewardRate(addr, body.Caller, fromHexOrDecimal(body.Rate), opTime(body.Now)); err != nil {
		return convertError(err)
	}
	return ps.respondSummary(w, addr)
}

func (ps *Pools) handleSetPenalty(w http.ResponseWriter, req *http.Request) error {
	addr, err := parsePoolAddress(req)
	if err != nil {
		return err
	}
	var body PenaltyRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	routing, err := parseRouting(body.Routing)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "routing"))
	}
	base, err := parseBase(body.Base)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "base"))
	}
	if err := ps.engine.SetPenalty(addr, body.Caller, body.Window, body.Bps, routing, base, opTime(body.Now)); err != nil {
		return convertError(err)
	}
	return ps.respondSummary(w, addr)
}

func (ps *Pools) handleSetStakeCap(w http.ResponseWriter, req *http.Request) error {
	addr, err := parsePoolAddress(req)
	if err != nil {
		return err
	}
	var body StakeCapRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	var cap_ *big.Int
	if body.Cap != nil {
		cap_ = fromHexOrDecimal(body.Cap)
	}
	if err := ps.engine.SetStakeCap(addr, body.Caller, cap_, opTime(body.Now)); err != nil {
		return convertError(err)
	}
	return ps.respondSummary(w, addr)
}

func (ps *Pools) handleSetTreasury(w http.ResponseWriter, req *http.Request) error {
	addr, err := parsePoolAddress(req)
	if err != nil {
		return err
	}
	var body TreasuryRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := ps.engine.SetTreasury(addr, body.Caller, body.Treasury, opTime(body.Now)); err != nil {
		return convertError(err)
	}
	return ps.respondSummary(w, addr)
}

func (ps *Pools) handleSetOwner(w http.ResponseWriter, req *http.Request) error {
	addr, err := parsePoolAddress(req)
	if err != nil {
		return err
	}
	var body OwnerRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.NewOwner == nil {
		return convertError(ps.engine.RenounceOwnership(addr, body.Caller))
	}
	if err := ps.engine.TransferOwnership(addr, body.Caller, *body.NewOwner, opTime(body.Now)); err != nil {
		return convertError(err)
	}
	return ps.respondSummary(w, addr)
}

func (ps *Pools) handleSetRank(w http.ResponseWriter, req *http.Request) error {
	addr, err := parsePoolAddress(req)
	if err != nil {
		return err
	}
	var body RankRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := ps.engine.SetRank(body.Caller, addr, body.Rank, opTime(body.Now)); err != nil {
		return convertError(err)
	}
	return ps.respondSummary(w, addr)
}

func (ps *Pools) respondSummary(w http.ResponseWriter, addr stakewell.Address) error {
	sum, err := ps.summary(addr)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, sum)
}

func parseRouting(s string) (pool.PenaltyRouting, error) {
	switch s {
	case "", "burn":
		return pool.RouteBurn, nil
	case "owner":
		return pool.RouteOwner, nil
	default:
		return 0, errors.Errorf("unknown penalty routing %q", s)
	}
}

func parseBase(s string) (pool.PenaltyBase, error) {
	switch s {
	case "", "reward":
		return pool.BaseReward, nil
	case "total":
		return pool.BaseTotal, nil
	default:
		return 0, errors.Errorf("unknown penalty base %q", s)
	}
}

func (ps *Pools) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(ps.handleList))
	sub.Path("/{address}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(ps.handleGetPool))
	sub.Path("/{address}/positions/{holder}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(ps.handleGetPosition))
	sub.Path("/{address}/deposits").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(ps.handleDeposit))
	sub.Path("/{address}/withdrawals").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(ps.handleWithdraw))
	sub.Path("/{address}/harvests").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(ps.handleHarvest))
	sub.Path("/{address}/emergency-withdrawals").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(ps.handleEmergencyWithdraw))
	sub.Path("/{address}/migrations").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(ps.handleMigrate))
	sub.Path("/{address}/reward-rate").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(ps.handleSetRewardRate))
	sub.Path("/{address}/penalty").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(ps.handleSetPenalty))
	sub.Path("/{address}/stake-cap").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(ps.handleSetStakeCap))
	sub.Path("/{address}/treasury").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(ps.handleSetTreasury))
	sub.Path("/{address}/owner").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(ps.handleSetOwner))
	sub.Path("/{address}/rank").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(ps.handleSetRank))
}
