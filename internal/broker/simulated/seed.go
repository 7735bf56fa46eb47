package simulated

import (
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"terminal_bridge/internal/broker"
	"terminal_bridge/internal/models"
)

var demoSymbols = []string{"EURUSD", "GBPUSD", "XAUUSD", "US500", "USDJPY"}

// Seed creates a simulated terminal holding every managed account, each with
// a deterministic balance and two years of deal history ending at now.
func Seed(accounts []models.ManagedAccount, now time.Time) *Terminal {
	t := New()

	for i, acc := range accounts {
		startBalance := 10000.0 * float64(i+1)
		endBalance := startBalance * (1.15 + 0.05*float64(i%4))

		deals := generateAccountGrowth(acc.ID, now.AddDate(-2, 0, 0), now, startBalance, endBalance, 500)
		balance := dealBalance(deals)
		floating := decimal.NewFromFloat(float64((i%5)-2) * 37.5)
		equity := balance.Add(floating)
		margin := decimal.NewFromInt(int64(250 * (i%3 + 1)))

		info := broker.AccountInfo{
			Login:       acc.ID,
			Balance:     balance,
			Equity:      equity,
			Profit:      floating,
			Margin:      margin,
			FreeMargin:  equity.Sub(margin),
			MarginLevel: equity.Div(margin).Mul(decimal.NewFromInt(100)).Round(2),
			Currency:    "USD",
			Leverage:    100,
			Server:      "Demo-Server",
		}
		t.AddAccount(Account{Login: acc.ID, Server: "Demo-Server", Info: info, Deals: deals})
	}

	log.Info("========================================")
	log.Info("DEMO MODE ENABLED")
	log.Infof("Simulated terminal seeded with %d accounts", len(accounts))
	log.Info("========================================")

	return t
}

// generateAccountGrowth creates a deal history growing an account from
// startBalance to endBalance: an initial deposit, monthly deposits and a
// closed round trip every month.
func generateAccountGrowth(login int64, startDate, endDate time.Time, startBalance, endBalance, monthlyContrib float64) []broker.Deal {
	var deals []broker.Deal

	months := int(endDate.Sub(startDate).Hours() / 24 / 30)
	if months < 1 {
		months = 1
	}

	totalContributions := float64(months) * monthlyContrib
	marketGrowth := endBalance - startBalance - totalContributions

	ticket := login * 100000
	next := func() int64 {
		ticket++
		return ticket
	}

	currentDate := startDate
	deals = append(deals, broker.Deal{
		Ticket:  next(),
		Time:    currentDate,
		Type:    broker.DealTypeBalance,
		Entry:   broker.DealEntryIn,
		Profit:  dec(startBalance),
		Comment: "Initial deposit",
	})

	for i := 0; i < months; i++ {
		currentDate = currentDate.AddDate(0, 1, 0)
		if currentDate.After(endDate) {
			currentDate = endDate
		}

		deals = append(deals, broker.Deal{
			Ticket:  next(),
			Time:    currentDate,
			Type:    broker.DealTypeBalance,
			Entry:   broker.DealEntryIn,
			Profit:  dec(monthlyContrib),
			Comment: "Monthly deposit",
		})

		// Deterministic variation around the average monthly return.
		adjustment := 1.0 + float64((i%5)-2)*0.1
		pnl := marketGrowth / float64(months) * adjustment

		symbol := demoSymbols[i%len(demoSymbols)]
		dealType := broker.DealTypeBuy
		closeType := broker.DealTypeSell
		if i%2 == 1 {
			dealType, closeType = broker.DealTypeSell, broker.DealTypeBuy
		}
		position := next()
		magic := int64(0)
		if i%3 == 0 {
			magic = 20240101
		}

		opened := currentDate.Add(2 * time.Hour)
		closed := opened.Add(time.Duration(3+i%7) * time.Hour)
		if closed.After(endDate) {
			opened, closed = endDate.Add(-time.Hour), endDate
		}

		deals = append(deals,
			broker.Deal{
				Ticket:     next(),
				Order:      position,
				Time:       opened,
				Type:       dealType,
				Entry:      broker.DealEntryIn,
				Magic:      magic,
				Volume:     decimal.NewFromFloat(0.1 * float64(1+i%3)),
				Price:      decimal.NewFromFloat(1.0 + float64(i%10)*0.01).Round(5),
				Commission: dec(-0.7),
				Symbol:     symbol,
				PositionID: position,
			},
			broker.Deal{
				Ticket:     next(),
				Order:      position + 1,
				Time:       closed,
				Type:       closeType,
				Entry:      broker.DealEntryOut,
				Magic:      magic,
				Volume:     decimal.NewFromFloat(0.1 * float64(1+i%3)),
				Price:      decimal.NewFromFloat(1.0 + float64(i%10)*0.01 + 0.005).Round(5),
				Commission: dec(-0.7),
				Profit:     dec(pnl + 1.4),
				Symbol:     symbol,
				PositionID: position,
			},
		)
	}

	return deals
}

// dealBalance sums the balance effect of a deal history.
func dealBalance(deals []broker.Deal) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deals {
		total = total.Add(d.Profit).Add(d.Commission).Add(d.Swap)
	}
	return total.Round(2)
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
