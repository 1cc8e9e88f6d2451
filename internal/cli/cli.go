package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	internal_http "github.com/Eric920418/Manpower-sub000/internal/http"
	"github.com/Eric920418/Manpower-sub000/internal/log"
	internal_storage "github.com/Eric920418/Manpower-sub000/internal/storage"
	"github.com/Eric920418/Manpower-sub000/pkg/service"
)

func SetupCLI(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the back-office workflow server",
		Run: func(cmd *cobra.Command, args []string) {
			dbConnStr, err := cmd.Flags().GetString("db")
			if err != nil {
				log.GetLogger().Errorf("Error retrieving db flag: %v", err)
				os.Exit(1)
			}
			port, err := cmd.Flags().GetString("port")
			if err != nil {
				log.GetLogger().Errorf("Error retrieving port flag: %v", err)
				os.Exit(1)
			}
			store := initStore(dbConnStr)
			defer store.Close()
			if err := internal_http.StartServer(port, store); err != nil {
				log.GetLogger().Errorf("Server stopped: %v", err)
				os.Exit(1)
			}
		},
	}
	serveCmd.Flags().String("port", "8080", "Port to listen on")

	listTypesCmd := &cobra.Command{
		Use:   "list-types",
		Short: "List all task types",
		Run: func(cmd *cobra.Command, args []string) {
			dbConnStr, err := cmd.Flags().GetString("db")
			if err != nil {
				log.GetLogger().Errorf("Error retrieving db flag: %v", err)
				os.Exit(1)
			}
			store := initStore(dbConnStr)
			defer store.Close()
			svc := service.NewWorkflowService(store, log.GetLogger())
			listTaskTypes(svc)
		},
	}

	applyDefaultsCmd := &cobra.Command{
		Use:   "apply-defaults [taskTypeID]",
		Short: "Back-fill default assignments onto open tasks",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dbConnStr, err := cmd.Flags().GetString("db")
			if err != nil {
				log.GetLogger().Errorf("Error retrieving db flag: %v", err)
				os.Exit(1)
			}
			var taskTypeID *int64
			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error parsing task type id: %v\n", err)
					os.Exit(1)
				}
				taskTypeID = &id
			}
			store := initStore(dbConnStr)
			defer store.Close()
			svc := service.NewAssignmentService(store, log.GetLogger())
			result, err := svc.ApplyDefaults(0, taskTypeID)
			if err != nil {
				log.GetLogger().Errorf("Failed to apply defaults: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to apply defaults: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Updated %d tasks with %d new assignments\n",
				result.UpdatedTaskCount, result.NewAssignmentCount)
		},
	}

	rootCmd.AddCommand(serveCmd, listTypesCmd, applyDefaultsCmd)
}

func listTaskTypes(svc *service.WorkflowService) {
	taskTypes, err := svc.ListTaskTypes()
	if err != nil {
		log.GetLogger().Errorf("Failed to list task types: %v", err)
		fmt.Fprintf(os.Stderr, "Error: failed to list task types: %v\n", err)
		os.Exit(1)
	}
	if len(taskTypes) == 0 {
		fmt.Fprintf(os.Stdout, "No task types found.\n")
		return
	}
	fmt.Fprintf(os.Stdout, "Task types:\n")
	for _, tt := range taskTypes {
		active := "active"
		if !tt.IsActive {
			active = "inactive"
		}
		fmt.Fprintf(os.Stdout, "- ID: %d, Code: %s, Label: %s, %s, Created: %s\n",
			tt.ID, tt.Code, tt.Label, active, tt.CreatedAt.Format(time.RFC3339))
	}
}

func initStore(dbConnStr string) *internal_storage.PostgresStore {
	store, err := internal_storage.InitStore(dbConnStr)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	return store
}
