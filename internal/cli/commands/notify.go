package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edp-labs/dataops/internal/cli/config"
	"github.com/edp-labs/dataops/internal/notify"
)

// NewNotifyCommand creates the notify command.
func NewNotifyCommand() *cobra.Command {
	var (
		topicARN string
		subject  string
	)

	cmd := &cobra.Command{
		Use:   "notify <message...>",
		Short: "Publish a message to an SNS topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			logger := config.GetLogger(cmd.Context())
			ctx := cmd.Context()

			p, err := notify.NewPublisherFromRegion(ctx, cfg.AWS.Region, logger)
			if err != nil {
				return err
			}
			id, err := p.Publish(ctx, topicARN, subject, strings.Join(args, " "))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Published message %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&topicARN, "topic", "", "SNS topic ARN")
	cmd.Flags().StringVar(&subject, "subject", "", "Message subject")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

// NewQueueCommand creates the queue command group.
func NewQueueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "SQS queue operations",
	}
	cmd.AddCommand(newQueueSendCommand())
	return cmd
}

func newQueueSendCommand() *cobra.Command {
	var (
		queueName string
		attrs     []string
	)

	cmd := &cobra.Command{
		Use:   "send <body...>",
		Short: "Send a message to an SQS queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			logger := config.GetLogger(cmd.Context())
			ctx := cmd.Context()

			attrMap := make(map[string]string, len(attrs))
			for _, a := range attrs {
				k, v, ok := strings.Cut(a, "=")
				if !ok || k == "" {
					return fmt.Errorf("invalid attribute %q, want key=value", a)
				}
				attrMap[k] = v
			}

			sender, err := notify.NewQueueSenderFromRegion(ctx, cfg.AWS.Region, logger)
			if err != nil {
				return err
			}
			id, err := sender.Send(ctx, queueName, strings.Join(args, " "), attrMap)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Sent message %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&queueName, "queue", "", "Queue name")
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "Message attribute key=value (repeatable)")
	_ = cmd.MarkFlagRequired("queue")
	return cmd
}
