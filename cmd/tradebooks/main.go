package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebooks/internal/clock"
	"github.com/smallbiznis/tradebooks/internal/config"
	"github.com/smallbiznis/tradebooks/internal/customer"
	"github.com/smallbiznis/tradebooks/internal/inventory"
	"github.com/smallbiznis/tradebooks/internal/invoice"
	"github.com/smallbiznis/tradebooks/internal/logger"
	"github.com/smallbiznis/tradebooks/internal/migration"
	"github.com/smallbiznis/tradebooks/internal/payment"
	"github.com/smallbiznis/tradebooks/internal/product"
	"github.com/smallbiznis/tradebooks/internal/quotation"
	"github.com/smallbiznis/tradebooks/internal/scheduler"
	"github.com/smallbiznis/tradebooks/internal/sequence"
	"github.com/smallbiznis/tradebooks/internal/server"
	"github.com/smallbiznis/tradebooks/internal/shop"
	"github.com/smallbiznis/tradebooks/internal/statement"
	"github.com/smallbiznis/tradebooks/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		shop.Module,
		customer.Module,
		product.Module,
		sequence.Module,
		inventory.Module,
		invoice.Module,
		payment.Module,
		quotation.Module,
		statement.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
