// Package skuforecast forecasts weekly demand per SKU.
//
// Demand history is read from CSV by the loader package, each requested SKU
// gets an ARIMA(2,1,2) fit from the forecaster package, and the assembler
// package merges the per-SKU forecasts into one table on a shared weekly
// calendar. The export, recorder and metrics packages deliver the result;
// cmd/skuforecast wires everything together, optionally on a cron schedule.
//
// # Quick Start
//
//	bySKU, _ := loader.LoadFile("updated_mock_sku_demand_data.csv")
//	fc := forecaster.New(forecaster.DefaultOptions())
//	asm := assembler.New(fc, assembler.Options{Anchor: time.Monday})
//	records, err := asm.Assemble(ctx, bySKU, config.DefaultTargets, 1)
//
// Every failure is one of demand.SchemaError, demand.DateParseError,
// demand.InsufficientHistoryError or demand.ModelFitError.
package skuforecast
