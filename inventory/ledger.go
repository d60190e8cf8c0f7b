package inventory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientBalance 可用或冻结余额不足。
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount 金额为负。
	ErrInvalidAmount = errors.New("invalid amount")
)

// Balance 某账户某资产的余额记录，不可变，更新时整体替换。
type Balance struct {
	Available decimal.Decimal
	Frozen    decimal.Decimal
}

// Total 可用加冻结。
func (b Balance) Total() decimal.Decimal {
	return b.Available.Add(b.Frozen)
}

var zeroBalance = &Balance{}

// Ledger 账户余额。每个 (账户, 资产) 一个原子指针，更新通过 CAS 完成，无全局锁。
type Ledger struct {
	slots sync.Map // "account/asset" -> *atomic.Pointer[Balance]
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func slotKey(account, asset string) string {
	return account + "/" + asset
}

func (l *Ledger) slot(account, asset string) *atomic.Pointer[Balance] {
	key := slotKey(account, asset)
	if p, ok := l.slots.Load(key); ok {
		return p.(*atomic.Pointer[Balance])
	}
	fresh := &atomic.Pointer[Balance]{}
	fresh.Store(zeroBalance)
	p, _ := l.slots.LoadOrStore(key, fresh)
	return p.(*atomic.Pointer[Balance])
}

// update 读取-计算-CAS，冲突时重试。
func (l *Ledger) update(account, asset string, amount decimal.Decimal, fn func(b Balance) (Balance, error)) error {
	if amount.IsNegative() {
		return fmt.Errorf("%s %s amount %s: %w", account, asset, amount, ErrInvalidAmount)
	}
	if amount.IsZero() {
		return nil
	}
	p := l.slot(account, asset)
	for {
		old := p.Load()
		next, err := fn(*old)
		if err != nil {
			return fmt.Errorf("%s %s amount %s: %w", account, asset, amount, err)
		}
		if p.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

// Add 增加可用余额（入金、成交入账）。
func (l *Ledger) Add(account, asset string, amount decimal.Decimal) error {
	return l.update(account, asset, amount, func(b Balance) (Balance, error) {
		b.Available = b.Available.Add(amount)
		return b, nil
	})
}

// Freeze 可用转冻结。
func (l *Ledger) Freeze(account, asset string, amount decimal.Decimal) error {
	return l.update(account, asset, amount, func(b Balance) (Balance, error) {
		if b.Available.LessThan(amount) {
			return b, ErrInsufficientBalance
		}
		b.Available = b.Available.Sub(amount)
		b.Frozen = b.Frozen.Add(amount)
		return b, nil
	})
}

// Unfreeze 冻结转可用。
func (l *Ledger) Unfreeze(account, asset string, amount decimal.Decimal) error {
	return l.update(account, asset, amount, func(b Balance) (Balance, error) {
		if b.Frozen.LessThan(amount) {
			return b, ErrInsufficientBalance
		}
		b.Frozen = b.Frozen.Sub(amount)
		b.Available = b.Available.Add(amount)
		return b, nil
	})
}

// Deduct 从冻结余额中扣除（成交交割）。
func (l *Ledger) Deduct(account, asset string, amount decimal.Decimal) error {
	return l.update(account, asset, amount, func(b Balance) (Balance, error) {
		if b.Frozen.LessThan(amount) {
			return b, ErrInsufficientBalance
		}
		b.Frozen = b.Frozen.Sub(amount)
		return b, nil
	})
}

// Balance 当前余额快照。
func (l *Ledger) Balance(account, asset string) Balance {
	p, ok := l.slots.Load(slotKey(account, asset))
	if !ok {
		return Balance{}
	}
	return *p.(*atomic.Pointer[Balance]).Load()
}

// Balances 账户下全部资产余额。
func (l *Ledger) Balances(account string) map[string]Balance {
	out := make(map[string]Balance)
	prefix := account + "/"
	l.slots.Range(func(k, v any) bool {
		key := k.(string)
		if strings.HasPrefix(key, prefix) {
			out[strings.TrimPrefix(key, prefix)] = *v.(*atomic.Pointer[Balance]).Load()
		}
		return true
	})
	return out
}

// Assets 账户下的资产名，按字母序。
func (l *Ledger) Assets(account string) []string {
	bals := l.Balances(account)
	out := make([]string, 0, len(bals))
	for a := range bals {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
