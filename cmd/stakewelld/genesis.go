// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/stakewell/stakewell/pool"
	"github.com/stakewell/stakewell/stakewell"
)

// Genesis declares the ledger's initial shape: token balances and
// allowances, pools and their migration ranks. It is applied on first
// boot only; an already populated ledger ignores it.
type Genesis struct {
	RegistryOwner string         `yaml:"registryOwner"`
	Tokens        []TokenGenesis `yaml:"tokens"`
	Pools         []PoolGenesis  `yaml:"pools"`
}

// TokenGenesis one token ledger with its initial balances.
type TokenGenesis struct {
	Name       string             `yaml:"name"`
	Address    string             `yaml:"address,omitempty"`
	Balances   []BalanceGenesis   `yaml:"balances,omitempty"`
	Allowances []AllowanceGenesis `yaml:"allowances,omitempty"`
}

// BalanceGenesis one minted balance.
type BalanceGenesis struct {
	Holder string `yaml:"holder"`
	Amount string `yaml:"amount"`
}

// AllowanceGenesis one pre-approved allowance.
type AllowanceGenesis struct {
	Owner   string `yaml:"owner"`
	Spender string `yaml:"spender"`
	Amount  string `yaml:"amount"`
}

// PoolGenesis one pool declaration.
type PoolGenesis struct {
	Name                string `yaml:"name"`
	Address             string `yaml:"address,omitempty"`
	Accounting          string `yaml:"accounting"`
	Owner               string `yaml:"owner"`
	StakeToken          string `yaml:"stakeToken"`
	RewardToken         string `yaml:"rewardToken,omitempty"`
	Treasury            string `yaml:"treasury,omitempty"`
	RewardRatePerSecond string `yaml:"rewardRatePerSecond"`
	EarlyWithdrawWindow uint64 `yaml:"earlyWithdrawWindow,omitempty"`
	PenaltyRateBps      uint32 `yaml:"penaltyRateBps,omitempty"`
	PenaltyRouting      string `yaml:"penaltyRouting,omitempty"`
	PenaltyBase         string `yaml:"penaltyBase,omitempty"`
	StakeCap            string `yaml:"stakeCap,omitempty"`
	// Reserve is minted in the pool's reward token to the pool address,
	// funding accumulator-strategy payouts.
	Reserve string `yaml:"reserve,omitempty"`
	Rank    uint64 `yaml:"rank,omitempty"`
}

func loadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis file")
	}
	var gene Genesis
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&gene); err != nil {
		return nil, errors.Wrap(err, "parse genesis file")
	}
	if gene.RegistryOwner == "" {
		return nil, errors.New("genesis: registryOwner is required")
	}
	return &gene, nil
}

// resolveAddr accepts a hex address or derives one from a declared name.
func resolveAddr(s string) (stakewell.Address, error) {
	if s == "" {
		return stakewell.Address{}, nil
	}
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		return stakewell.ParseAddress(s)
	}
	return stakewell.NamedAddress(s), nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, errors.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func parseAccounting(s string) (pool.Accounting, error) {
	switch s {
	case "", "accumulator":
		return pool.AccountingAccumulator, nil
	case "shares":
		return pool.AccountingShares, nil
	default:
		return 0, errors.Errorf("unknown accounting strategy %q", s)
	}
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

// Owner returns the registry owner address.
func (g *Genesis) Owner() (stakewell.Address, error) {
	return resolveAddr(g.RegistryOwner)
}

// Apply populates a fresh ledger. A ledger that already has pools is
// left untouched, so restarting with the same genesis is safe.
func (g *Genesis) Apply(engine *pool.Engine) error {
	if len(engine.Pools()) > 0 {
		logger.Info("ledger already populated, skipping genesis")
		return nil
	}

	for _, tok := range g.Tokens {
		addr, err := g.tokenAddr(&tok)
		if err != nil {
			return err
		}
		for _, bal := range tok.Balances {
			holder, err := resolveAddr(bal.Holder)
			if err != nil {
				return errors.WithMessagef(err, "token %s balance", tok.Name)
			}
			amount, err := parseAmount(bal.Amount)
			if err != nil {
				return errors.WithMessagef(err, "token %s balance", tok.Name)
			}
			if err := engine.TokenMint(addr, holder, amount); err != nil {
				return err
			}
		}
		for _, allow := range tok.Allowances {
			owner, err := resolveAddr(allow.Owner)
			if err != nil {
				return errors.WithMessagef(err, "token %s allowance", tok.Name)
			}
			spender, err := resolveAddr(allow.Spender)
			if err != nil {
				return errors.WithMessagef(err, "token %s allowance", tok.Name)
			}
			amount, err := parseAmount(allow.Amount)
			if err != nil {
				return errors.WithMessagef(err, "token %s allowance", tok.Name)
			}
			if err := engine.TokenApprove(addr, owner, spender, amount); err != nil {
				return err
			}
		}
	}

	registryOwner, err := g.Owner()
	if err != nil {
		return err
	}
	for _, pg := range g.Pools {
		addr, cfg, err := g.poolConfig(&pg)
		if err != nil {
			return err
		}
		if err := engine.CreatePool(addr, cfg); err != nil {
			return errors.WithMessagef(err, "pool %s", pg.Name)
		}
		if pg.Reserve != "" {
			reserve, err := parseAmount(pg.Reserve)
			if err != nil {
				return errors.WithMessagef(err, "pool %s reserve", pg.Name)
			}
			rewardTok := cfg.RewardToken
			if cfg.Accounting == pool.AccountingShares {
				rewardTok = cfg.StakeToken
			}
			if err := engine.TokenMint(rewardTok, addr, reserve); err != nil {
				return err
			}
		}
		if pg.Rank > 0 {
			if err := engine.SetRank(registryOwner, addr, pg.Rank, 0); err != nil {
				return errors.WithMessagef(err, "pool %s rank", pg.Name)
			}
		}
		logger.Info("pool declared", "name", pg.Name, "pool", addr, "accounting", cfg.Accounting)
	}
	return nil
}

func (g *Genesis) tokenAddr(tok *TokenGenesis) (stakewell.Address, error) {
	if tok.Address != "" {
		return resolveAddr(tok.Address)
	}
	if tok.Name == "" {
		return stakewell.Address{}, errors.New("token needs a name or an address")
	}
	return stakewell.NamedAddress("token-" + tok.Name), nil
}

func (g *Genesis) poolConfig(pg *PoolGenesis) (stakewell.Address, *pool.Config, error) {
	var addr stakewell.Address
	var err error
	if pg.Address != "" {
		addr, err = resolveAddr(pg.Address)
	} else if pg.Name != "" {
		addr = stakewell.NamedAddress("pool-" + pg.Name)
	} else {
		err = errors.New("pool needs a name or an address")
	}
	if err != nil {
		return stakewell.Address{}, nil, err
	}

	acct, err := parseAccounting(pg.Accounting)
	if err != nil {
		return stakewell.Address{}, nil, err
	}
	owner, err := resolveAddr(pg.Owner)
	if err != nil {
		return stakewell.Address{}, nil, err
	}
	stakeTok, err := g.resolveToken(pg.StakeToken)
	if err != nil {
		return stakewell.Address{}, nil, err
	}
	rewardTok, err := g.resolveToken(pg.RewardToken)
	if err != nil {
		return stakewell.Address{}, nil, err
	}
	treasury, err := resolveAddr(pg.Treasury)
	if err != nil {
		return stakewell.Address{}, nil, err
	}
	rate, err := parseAmount(pg.RewardRatePerSecond)
	if err != nil {
		return stakewell.Address{}, nil, err
	}
	routing, err := parseRouting(pg.PenaltyRouting)
	if err != nil {
		return stakewell.Address{}, nil, err
	}
	base, err := parseBase(pg.PenaltyBase)
	if err != nil {
		return stakewell.Address{}, nil, err
	}
	var cap_ *big.Int
	if pg.StakeCap != "" {
		if cap_, err = parseAmount(pg.StakeCap); err != nil {
			return stakewell.Address{}, nil, err
		}
	}

	return addr, &pool.Config{
		Accounting:          acct,
		Owner:               owner,
		StakeToken:          stakeTok,
		RewardToken:         rewardTok,
		Treasury:            treasury,
		RewardRatePerSecond: rate,
		EarlyWithdrawWindow: pg.EarlyWithdrawWindow,
		PenaltyRateBps:      pg.PenaltyRateBps,
		PenaltyRouting:      routing,
		PenaltyBase:         base,
		StakeCap:            cap_,
	}, nil
}

// resolveToken maps a declared token name, or a raw address, to its
// ledger identity using the same derivation as token declarations.
func (g *Genesis) resolveToken(s string) (stakewell.Address, error) {
	if s == "" {
		return stakewell.Address{}, nil
	}
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		return stakewell.ParseAddress(s)
	}
	for i := range g.Tokens {
		if g.Tokens[i].Name == s {
			return g.tokenAddr(&g.Tokens[i])
		}
	}
	return stakewell.NamedAddress("token-" + s), nil
}
