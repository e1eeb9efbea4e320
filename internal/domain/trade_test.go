package domain

import (
	"math"
	"testing"
)

func TestFill_AveragePrice_SingleTrade(t *testing.T) {
	f := Summarize([]Trade{{Price: 150, Quantity: 100}})
	avg, ok := f.AveragePrice()
	if !ok {
		t.Fatal("AveragePrice() returned false, want true")
	}
	if avg != 150 {
		t.Errorf("AveragePrice() = %v, want 150", avg)
	}
}

func TestFill_AveragePrice_MultipleTrades(t *testing.T) {
	// 700 @ 148 + 300 @ 149 = 103600 + 44700 = 148300 / 1000 = 148.3
	f := Summarize([]Trade{
		{Price: 148, Quantity: 700},
		{Price: 149, Quantity: 300},
	})
	if f.Quantity != 1000 {
		t.Fatalf("Quantity = %d, want 1000", f.Quantity)
	}
	avg, _ := f.AveragePrice()
	if math.Abs(avg-148.3) > 1e-9 {
		t.Errorf("AveragePrice() = %v, want 148.3", avg)
	}
}

func TestFill_AveragePrice_NoTrades(t *testing.T) {
	if _, ok := Summarize(nil).AveragePrice(); ok {
		t.Error("AveragePrice() returned true, want false for no trades")
	}
}

func TestAgentStats_AddAndReset(t *testing.T) {
	var s AgentStats
	s.Add(Buy, 10)
	s.Add(Sell, 4)
	s.Add(Buy, 5)
	if s.BuyVolume != 15 || s.SellVolume != 4 {
		t.Errorf("stats = %+v, want buy 15 sell 4", s)
	}
	s.Reset()
	if s != (AgentStats{}) {
		t.Errorf("Reset() left %+v", s)
	}
}

func TestSimConfig_Validate(t *testing.T) {
	if err := (SimConfig{Makers: 1, Noise: 3}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (SimConfig{Momentum: -1}).Validate(); err != ErrInvalidPopulation {
		t.Errorf("Validate() = %v, want ErrInvalidPopulation", err)
	}
	if got := (SimConfig{1, 2, 3, 4}).Total(); got != 10 {
		t.Errorf("Total() = %d, want 10", got)
	}
}
