package swaps

import (
	"rentme-app/internal/app/commands"
	"rentme-app/internal/app/queries"
	swapstore "rentme-app/internal/app/swaps"
	"rentme-app/internal/domain/catalog"
	"rentme-app/internal/domain/swap"
)

// Register wires the swap command and query handlers onto the buses.
func Register(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, store *swapstore.Store) {
	commands.RegisterHandler[CreateSwapCommand, swap.Request](cmdBus, createSwapKey, CreateSwapHandler{Store: store})
	commands.RegisterHandler[ChangeSwapStatusCommand, swap.Request](cmdBus, changeSwapStatusKey, ChangeSwapStatusHandler{Store: store})
	commands.RegisterHandler[AddSwappableItemCommand, catalog.Product](cmdBus, addItemKey, AddSwappableItemHandler{Store: store})
	commands.RegisterHandler[RemoveSwappableItemCommand, bool](cmdBus, removeItemKey, RemoveSwappableItemHandler{Store: store})

	queries.RegisterHandler[ListSwapsQuery, []swap.Request](queryBus, listSwapsKey, ListSwapsHandler{Store: store})
	queries.RegisterHandler[GetSwapQuery, swap.Request](queryBus, getSwapKey, GetSwapHandler{Store: store})
	queries.RegisterHandler[SwapStatsQuery, swapstore.Stats](queryBus, swapStatsKey, SwapStatsHandler{Store: store})
	queries.RegisterHandler[SwappableItemsQuery, []catalog.Product](queryBus, swappableItemKey, SwappableItemsHandler{Store: store})
}
