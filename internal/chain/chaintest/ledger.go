// Package chaintest provides an in-memory ledger for exercising the
// marketplace pipelines without a node.
package chaintest

import (
	"context"
	"fmt"
	"sync"

	"asset-market-go/internal/chain"
)

// Compile-time check: *Ledger must satisfy chain.Client.
var _ chain.Client = (*Ledger)(nil)

type Op string

const (
	OpInitiate Op = "initiate"
	OpMint     Op = "mint"
	OpWait     Op = "wait"
	OpDetails  Op = "details"
	OpTransfer Op = "transfer"
	OpPayment  Op = "payment"
	OpHolders  Op = "holders"
	OpBalance  Op = "balance"
)

type asset struct {
	id           string
	name         string
	creationTxId string
	target       string
	minted       bool
	holders      map[string]int64
}

// Ledger applies every submission immediately and confirms it on the first
// WaitTransaction unless told otherwise.
type Ledger struct {
	mu           sync.Mutex
	seq          int
	assets       map[string]*asset
	byCreation   map[string]*asset
	byId         map[string]*asset
	balances     map[string]int64
	txOp         map[string]Op
	failures     map[Op][]error
	unconfirmed  map[Op]bool
	calls        map[Op]int
	beforeSubmit map[Op]func()
}

func New() *Ledger {
	return &Ledger{
		assets:       map[string]*asset{},
		byCreation:   map[string]*asset{},
		byId:         map[string]*asset{},
		balances:     map[string]int64{},
		txOp:         map[string]Op{},
		failures:     map[Op][]error{},
		unconfirmed:  map[Op]bool{},
		calls:        map[Op]int{},
		beforeSubmit: map[Op]func(){},
	}
}

// Fund credits base units to address
func (l *Ledger) Fund(address string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[address] += amount
}

// SeedAsset registers an already minted asset held by holder
func (l *Ledger) SeedAsset(name, holder string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	txId := l.nextTx(OpInitiate)
	a := &asset{id: "asset-" + txId, name: name, creationTxId: txId, target: holder, minted: true, holders: map[string]int64{holder: 1}}
	l.assets[name] = a
	l.byCreation[txId] = a
	l.byId[a.id] = a
	return a.id
}

// FailNext makes the next call of op return err. Calls queue in order.
func (l *Ledger) FailNext(op Op, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[op] = append(l.failures[op], err)
}

// NeverConfirm keeps transactions submitted by op unconfirmed, so waits on
// them block until the caller's context ends.
func (l *Ledger) NeverConfirm(op Op) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unconfirmed[op] = true
}

// BeforeSubmit runs fn (outside the ledger lock) before op is applied
func (l *Ledger) BeforeSubmit(op Op, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.beforeSubmit[op] = fn
}

func (l *Ledger) Calls(op Op) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[op]
}

func (l *Ledger) Balance(address string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[address]
}

// Holder returns the single address holding name, or "" when none or many
func (l *Ledger) Holder(name string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.assets[name]
	if !ok || len(a.holders) != 1 {
		return ""
	}
	for addr := range a.holders {
		return addr
	}
	return ""
}

// enter records a call and pops an injected failure. The returned hook, if
// any, must run before the lock is taken again.
func (l *Ledger) enter(op Op) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[op]++
	if queued := l.failures[op]; len(queued) > 0 {
		l.failures[op] = queued[1:]
		return nil, queued[0]
	}
	return l.beforeSubmit[op], nil
}

func (l *Ledger) nextTx(op Op) string {
	l.seq++
	txId := fmt.Sprintf("tx%04d", l.seq)
	l.txOp[txId] = op
	return txId
}

func rejected(op string, format string, args ...any) error {
	return &chain.Error{Kind: chain.KindRejected, Op: op, Err: fmt.Errorf(format, args...)}
}

func (l *Ledger) InitiateAssetCreation(_ context.Context, meta chain.AssetMetadata) (string, error) {
	hook, err := l.enter(OpInitiate)
	if err != nil {
		return "", err
	}
	if hook != nil {
		hook()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.assets[meta.Name]; exists {
		return "", rejected("createasset", "asset name %s already in use", meta.Name)
	}
	txId := l.nextTx(OpInitiate)
	a := &asset{id: "asset-" + txId, name: meta.Name, creationTxId: txId, target: meta.TargetAddress, holders: map[string]int64{}}
	l.assets[meta.Name] = a
	l.byCreation[txId] = a
	l.byId[a.id] = a
	return txId, nil
}

func (l *Ledger) MintCreatedAsset(_ context.Context, creationTxId string) (string, error) {
	hook, err := l.enter(OpMint)
	if err != nil {
		return "", err
	}
	if hook != nil {
		hook()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.byCreation[creationTxId]
	if !ok {
		return "", &chain.Error{Kind: chain.KindNotFound, Op: "mintasset", TxId: creationTxId}
	}
	if a.minted {
		return "", rejected("mintasset", "asset %s already minted", a.name)
	}
	a.minted = true
	a.holders[a.target] = 1
	return l.nextTx(OpMint), nil
}

func (l *Ledger) WaitTransaction(ctx context.Context, txId string, _ int) error {
	if _, err := l.enter(OpWait); err != nil {
		return err
	}
	l.mu.Lock()
	op, known := l.txOp[txId]
	stuck := l.unconfirmed[op]
	l.mu.Unlock()

	if !known {
		return &chain.Error{Kind: chain.KindNotFound, Op: "getrawtransaction", TxId: txId}
	}
	if stuck {
		<-ctx.Done()
		return &chain.Error{Kind: chain.KindTimeout, Op: "waittransaction", TxId: txId, Err: ctx.Err()}
	}
	return nil
}

func (l *Ledger) GetAssetDetailsByName(_ context.Context, name string) (*chain.AssetDetails, error) {
	if _, err := l.enter(OpDetails); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.assets[name]
	if !ok {
		return nil, &chain.Error{Kind: chain.KindNotFound, Op: "getassetdetailsbyname"}
	}
	var supply int64
	for _, units := range a.holders {
		supply += units
	}
	var mints int64
	if a.minted {
		mints = 1
	}
	return &chain.AssetDetails{
		AssetId:           a.id,
		Name:              a.name,
		CreationTxId:      a.creationTxId,
		OwnerAddress:      a.target,
		MintCount:         mints,
		CirculatingSupply: supply,
	}, nil
}

func (l *Ledger) TransferAsset(_ context.Context, req chain.TransferAssetRequest) (string, error) {
	hook, err := l.enter(OpTransfer)
	if err != nil {
		return "", err
	}
	if hook != nil {
		hook()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.byId[req.AssetId]
	if !ok {
		return "", &chain.Error{Kind: chain.KindNotFound, Op: "sendasset"}
	}
	amount := req.Amount
	if amount <= 0 {
		amount = 1
	}
	from := req.FromAddress
	if req.SigningKey == "" {
		from = a.target
	}
	if a.holders[from] < amount {
		return "", rejected("sendasset", "%s does not hold %s", from, a.name)
	}
	a.holders[from] -= amount
	if a.holders[from] == 0 {
		delete(a.holders, from)
	}
	a.holders[req.ToAddress] += amount
	return l.nextTx(OpTransfer), nil
}

func (l *Ledger) SendPayment(_ context.Context, req chain.PaymentRequest) (string, error) {
	hook, err := l.enter(OpPayment)
	if err != nil {
		return "", err
	}
	if hook != nil {
		hook()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if req.Amount <= 0 {
		return "", rejected("sendpayment", "amount must be positive")
	}
	if l.balances[req.FromAddress] < req.Amount {
		return "", rejected("sendpayment", "insufficient funds")
	}
	l.balances[req.FromAddress] -= req.Amount
	l.balances[req.ToAddress] += req.Amount
	return l.nextTx(OpPayment), nil
}

func (l *Ledger) ListAddressesHoldingAsset(_ context.Context, name string) (map[string]int64, error) {
	if _, err := l.enter(OpHolders); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.assets[name]
	if !ok {
		return map[string]int64{}, nil
	}
	holders := make(map[string]int64, len(a.holders))
	for addr, units := range a.holders {
		holders[addr] = units
	}
	return holders, nil
}

func (l *Ledger) GetAddressBalance(_ context.Context, address string) (int64, error) {
	if _, err := l.enter(OpBalance); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[address], nil
}
