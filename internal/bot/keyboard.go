package bot

import (
	"fmt"

	"github.com/okonst/taskmate/internal/vkteams"
)

// Callback data values for the inline menus.
const (
	callbackCreateTask      = "create_task"
	callbackCheckUserTasks  = "check_user_tasks"
	callbackWatchTasks      = "watch_tasks"
	callbackWatchStatistics = "watch_statistics"

	callbackApprovePrefix = "approve_"
	callbackRejectPrefix  = "reject_"
)

// mainKeyboard is the action grid attached to the /start welcome message.
func mainKeyboard() vkteams.Keyboard {
	return vkteams.Keyboard{
		{
			{Text: "New task", CallbackData: callbackCreateTask},
			{Text: "User's tasks", CallbackData: callbackCheckUserTasks},
		},
		{
			{Text: "My tasks", CallbackData: callbackWatchTasks},
		},
		{
			{Text: "Statistics", CallbackData: callbackWatchStatistics},
		},
	}
}

// decisionKeyboard is attached to every reminder prompt.
func decisionKeyboard(taskID uint) vkteams.Keyboard {
	return vkteams.Keyboard{
		{
			{Text: "Approve", CallbackData: fmt.Sprintf("%s%d", callbackApprovePrefix, taskID)},
			{Text: "Reject", CallbackData: fmt.Sprintf("%s%d", callbackRejectPrefix, taskID)},
		},
	}
}
