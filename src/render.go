package main

import (
	"eventadmission/src/controllers"

	"github.com/gin-gonic/gin"
)

// data wraps a controller that returns one value as {"data": value}.
func data[T any](fn func(*gin.Context) (T, int, error)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		v, status, err := fn(ctx)
		if err != nil {
			controllers.Fail(ctx, status, err)
			return
		}
		ctx.JSON(status, gin.H{"data": v})
	}
}

// list wraps a controller that returns a slice as {"data": items, "count": n}.
func list[T any](fn func(*gin.Context) ([]T, int, error)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		items, status, err := fn(ctx)
		if err != nil {
			controllers.Fail(ctx, status, err)
			return
		}
		ctx.JSON(status, gin.H{"data": items, "count": len(items)})
	}
}
