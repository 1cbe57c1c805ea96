// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pools

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakewell/stakewell/kv"
	"github.com/stakewell/stakewell/pool"
	"github.com/stakewell/stakewell/stakewell"
)

var (
	testOwner = stakewell.BytesToAddress([]byte("owner"))
	treasury  = stakewell.BytesToAddress([]byte("treasury"))
	alice     = stakewell.BytesToAddress([]byte("alice"))

	stakeTok  = stakewell.BytesToAddress([]byte("stake-tok"))
	rewardTok = stakewell.BytesToAddress([]byte("reward-tok"))
	poolAddr  = stakewell.BytesToAddress([]byte("pool-a"))
)

func newTestServer(t *testing.T) (*httptest.Server, *pool.Engine) {
	db, err := kv.NewMem()
	require.Nil(t, err)
	t.Cleanup(func() { db.Close() })

	engine, err := pool.NewEngine(db, testOwner)
	require.Nil(t, err)
	t.Cleanup(engine.Close)

	require.Nil(t, engine.CreatePool(poolAddr, &pool.Config{
		Accounting:          pool.AccountingAccumulator,
		Owner:               testOwner,
		StakeToken:          stakeTok,
		RewardToken:         rewardTok,
		Treasury:            treasury,
		RewardRatePerSecond: big.NewInt(1000),
	}))
	require.Nil(t, engine.TokenMint(stakeTok, alice, big.NewInt(10000)))
	require.Nil(t, engine.TokenMint(rewardTok, poolAddr, big.NewInt(1e15)))

	router := mux.NewRouter()
	New(engine).Mount(router, "/pools")
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, engine
}

func httpPost(t *testing.T, url string, body interface{}) (int, []byte) {
	data, err := json.Marshal(body)
	require.Nil(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.Nil(t, err)
	defer res.Body.Close()
	r, err := io.ReadAll(res.Body)
	require.Nil(t, err)
	return res.StatusCode, r
}

func httpGet(t *testing.T, url string) (int, []byte) {
	res, err := http.Get(url)
	require.Nil(t, err)
	defer res.Body.Close()
	r, err := io.ReadAll(res.Body)
	require.Nil(t, err)
	return res.StatusCode, r
}

func TestGetPools(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := httpGet(t, srv.URL+"/pools")
	assert.Equal(t, http.StatusOK, code)
	var list []Summary
	require.Nil(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, poolAddr, list[0].Address)
	assert.Equal(t, "accumulator", list[0].Accounting)

	code, body = httpGet(t, srv.URL+"/pools/"+poolAddr.String())
	assert.Equal(t, http.StatusOK, code)
	var sum Summary
	require.Nil(t, json.Unmarshal(body, &sum))
	assert.Equal(t, testOwner, sum.Owner)
	assert.Equal(t, big.NewInt(1000), (*big.Int)(sum.RewardRatePerSecond))

	code, _ = httpGet(t, srv.URL+"/pools/0xdeadbeef")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDepositAndPosition(t *testing.T) {
	srv, engine := newTestServer(t)

	code, body := httpPost(t, srv.URL+"/pools/"+poolAddr.String()+"/deposits", map[string]interface{}{
		"caller": alice.String(),
		"amount": "1000",
		"now":    2000,
	})
	assert.Equal(t, http.StatusOK, code)
	var view PositionView
	require.Nil(t, json.Unmarshal(body, &view))
	assert.Equal(t, alice, view.Holder)
	assert.Equal(t, big.NewInt(1000), (*big.Int)(view.Principal))
	assert.Equal(t, uint64(2000), view.LastDepositTime)

	bal, err := engine.TokenBalance(stakeTok, alice)
	require.Nil(t, err)
	assert.Equal(t, big.NewInt(9000), bal)

	// pending accrues with the queried timestamp
	code, body = httpGet(t, srv.URL+"/pools/"+poolAddr.String()+"/positions/"+alice.String()+"?now=2100")
	assert.Equal(t, http.StatusOK, code)
	require.Nil(t, json.Unmarshal(body, &view))
	assert.Equal(t, big.NewInt(100*1000), (*big.Int)(view.PendingReward))
}

func TestDepositFailures(t *testing.T) {
	srv, _ := newTestServer(t)

	// funds shortfall maps to conflict
	code, _ := httpPost(t, srv.URL+"/pools/"+poolAddr.String()+"/deposits", map[string]interface{}{
		"caller": alice.String(),
		"amount": "999999999",
		"now":    2000,
	})
	assert.Equal(t, http.StatusConflict, code)

	// unknown fields are rejected by the strict decoder
	code, _ = httpPost(t, srv.URL+"/pools/"+poolAddr.String()+"/deposits", map[string]interface{}{
		"caller": alice.String(),
		"amount": "10",
		"bogus":  true,
	})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWithdrawAndHarvest(t *testing.T) {
	srv, engine := newTestServer(t)

	code, _ := httpPost(t, srv.URL+"/pools/"+poolAddr.String()+"/deposits", map[string]interface{}{
		"caller": alice.String(), "amount": "1000", "now": 2000,
	})
	require.Equal(t, http.StatusOK, code)

	code, _ = httpPost(t, srv.URL+"/pools/"+poolAddr.String()+"/harvests", map[string]interface{}{
		"caller": alice.String(), "now": 2100,
	})
	assert.Equal(t, http.StatusOK, code)
	bal, err := engine.TokenBalance(rewardTok, alice)
	require.Nil(t, err)
	assert.Equal(t, big.NewInt(100*1000), bal)

	code, body := httpPost(t, srv.URL+"/pools/"+poolAddr.String()+"/withdrawals", map[string]interface{}{
		"caller": alice.String(), "amount": "1000", "now": 2100,
	})
	assert.Equal(t, http.StatusOK, code)
	var view PositionView
	require.Nil(t, json.Unmarshal(body, &view))
	assert.Equal(t, new(big.Int), (*big.Int)(view.Principal))
}

func TestAdminEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/pools/" + poolAddr.String()

	// non-owner is forbidden
	code, _ := httpPost(t, base+"/reward-rate", map[string]interface{}{
		"caller": alice.String(), "rate": "5", "now": 2000,
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, body := httpPost(t, base+"/reward-rate", map[string]interface{}{
		"caller": testOwner.String(), "rate": "5", "now": 2000,
	})
	assert.Equal(t, http.StatusOK, code)
	var sum Summary
	require.Nil(t, json.Unmarshal(body, &sum))
	assert.Equal(t, big.NewInt(5), (*big.Int)(sum.RewardRatePerSecond))

	code, body = httpPost(t, base+"/rank", map[string]interface{}{
		"caller": testOwner.String(), "rank": 4, "now": 2000,
	})
	assert.Equal(t, http.StatusOK, code)
	require.Nil(t, json.Unmarshal(body, &sum))
	assert.Equal(t, uint64(4), sum.Rank)

	// renouncing ownership is permanently disabled
	code, _ = httpPost(t, base+"/owner", map[string]interface{}{
		"caller": testOwner.String(),
	})
	assert.Equal(t, http.StatusForbidden, code)
}
