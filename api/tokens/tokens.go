// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tokens

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stakewell/stakewell/api/utils"
	"github.com/stakewell/stakewell/pool"
	"github.com/stakewell/stakewell/stakewell"
)

// Tokens exposes the asset ledgers over REST.
type Tokens struct {
	engine *pool.Engine
}

func New(engine *pool.Engine) *Tokens {
	return &Tokens{engine}
}

// TransferRequest moves the caller's own funds.
type TransferRequest struct {
	Caller stakewell.Address     `json:"caller"`
	To     stakewell.Address     `json:"to"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// ApproveRequest sets spender's allowance over the caller's balance.
type ApproveRequest struct {
	Caller  stakewell.Address     `json:"caller"`
	Spender stakewell.Address     `json:"spender"`
	Amount  *math.HexOrDecimal256 `json:"amount"`
}

func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case pool.IsConfigError(err):
		return utils.BadRequest(err)
	case pool.IsFundsError(err):
		return utils.Conflict(err)
	default:
		return err
	}
}

func pathAddress(req *http.Request, name string) (stakewell.Address, error) {
	addr, err := stakewell.ParseAddress(mux.Vars(req)[name])
	if err != nil {
		return stakewell.Address{}, utils.BadRequest(errors.WithMessage(err, name))
	}
	return addr, nil
}

func writeAmount(w http.ResponseWriter, v *big.Int) error {
	return utils.WriteJSON(w, utils.M{"amount": (*math.HexOrDecimal256)(v)})
}

func (ts *Tokens) handleGetSupply(w http.ResponseWriter, req *http.Request) error {
	tok, err := pathAddress(req, "address")
	if err != nil {
		return err
	}
	supply, err := ts.engine.TokenSupply(tok)
	if err != nil {
		return convertError(err)
	}
	return writeAmount(w, supply)
}

func (ts *Tokens) handleGetBalance(w http.ResponseWriter, req *http.Request) error {
	tok, err := pathAddress(req, "address")
	if err != nil {
		return err
	}
	holder, err := pathAddress(req, "holder")
	if err != nil {
		return err
	}
	bal, err := ts.engine.TokenBalance(tok, holder)
	if err != nil {
		return convertError(err)
	}
	return writeAmount(w, bal)
}

func (ts *Tokens) handleGetAllowance(w http.ResponseWriter, req *http.Request) error {
	tok, err := pathAddress(req, "address")
	if err != nil {
		return err
	}
	owner, err := pathAddress(req, "owner")
	if err != nil {
		return err
	}
	spender, err := pathAddress(req, "spender")
	if err != nil {
		return err
	}
	allowance, err := ts.engine.TokenAllowance(tok, owner, spender)
	if err != nil {
		return convertError(err)
	}
	return writeAmount(w, allowance)
}

func (ts *Tokens) handleTransfer(w http.ResponseWriter, req *http.Request) error {
	tok, err := pathAddress(req, "address")
	if err != nil {
		return err
	}
	var body TransferRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := ts.engine.TokenTransfer(tok, body.Caller, body.To, (*big.Int)(body.Amount)); err != nil {
		return convertError(err)
	}
	bal, err := ts.engine.TokenBalance(tok, body.Caller)
	if err != nil {
		return convertError(err)
	}
	return writeAmount(w, bal)
}

func (ts *Tokens) handleApprove(w http.ResponseWriter, req *http.Request) error {
	tok, err := pathAddress(req, "address")
	if err != nil {
		return err
	}
	var body ApproveRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := ts.engine.TokenApprove(tok, body.Caller, body.Spender, (*big.Int)(body.Amount)); err != nil {
		return convertError(err)
	}
	allowance, err := ts.engine.TokenAllowance(tok, body.Caller, body.Spender)
	if err != nil {
		return convertError(err)
	}
	return writeAmount(w, allowance)
}

func (ts *Tokens) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{address}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(ts.handleGetSupply))
	sub.Path("/{address}/balances/{holder}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(ts.handleGetBalance))
	sub.Path("/{address}/allowances/{owner}/{spender}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(ts.handleGetAllowance))
	sub.Path("/{address}/transfers").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(ts.handleTransfer))
	sub.Path("/{address}/approvals").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(ts.handleApprove))
}
