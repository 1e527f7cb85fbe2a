package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrjvadi/busrpc/bus"
	"github.com/mrjvadi/busrpc/internal/config"
	"github.com/mrjvadi/busrpc/producer"
)

var (
	produceQueue    string
	produceType     string
	produceResource string
	produceAction   string
	produceID       int64
	produceHasID    bool
	produceData     string
	produceTimeout  time.Duration
)

var produceCmd = &cobra.Command{
	Use:   "produce",
	Short: "Send one RPC request and print the reply.",
	RunE:  runProduce,
}

func init() {
	produceCmd.Flags().StringVar(&produceQueue, "queue", "busrpc", "Queue to send the request to.")
	produceCmd.Flags().StringVar(&produceType, "type", "INFRA", "Message type: DATA, APP, or INFRA.")
	produceCmd.Flags().StringVar(&produceResource, "resource", "Health", "Resource name, e.g. Users.")
	produceCmd.Flags().StringVar(&produceAction, "action", "CHECK", "Action to invoke.")
	produceCmd.Flags().Int64Var(&produceID, "id", 0, "Entity id, for actions that need one.")
	produceCmd.Flags().BoolVar(&produceHasID, "has-id", false, "Send --id with the request.")
	produceCmd.Flags().StringVar(&produceData, "data", "", "JSON payload for CREATE/UPDATE.")
	produceCmd.Flags().DurationVar(&produceTimeout, "timeout", 0, "Override the broker's default RPC timeout.")
}

func runProduce(_ *cobra.Command, _ []string) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(settings.Environment)
	if err != nil {
		return err
	}

	p := producer.New(settings.Broker, producer.WithLogger(logger))
	defer p.Close()

	msg := bus.BusMessage{
		Type:     bus.Type(produceType),
		Resource: produceResource,
		Action:   produceAction,
	}
	if produceHasID {
		msg.ID = &produceID
	}
	if produceData != "" {
		msg.Data = &produceData
	}

	timeout := resolveTimeout(produceTimeout, settings)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := p.Call(ctx, produceQueue, msg, produceTimeout)
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}

func resolveTimeout(override time.Duration, settings config.AppSettings) time.Duration {
	if override > 0 {
		return override
	}
	if settings.Broker.Timeout > 0 {
		return settings.Broker.Timeout
	}
	return 30 * time.Second
}
