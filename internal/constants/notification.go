package constants

const (
	NotifyTitlePaymentReceived    = "Payment Received"
	NotifyTitlePaymentFailed      = "Payment Failed"
	NotifyTitleWithdrawal         = "Withdrawal Successful"
	NotifyTitleDelayedConfirmed   = "Delayed Payment Confirmed"
	NotifyTitleDelayedUpdate      = "Delayed Payment Update"
	NotifyMsgPaymentReceived      = "Confirmed: KES %d has been added to your wallet. Ref: %s"
	NotifyMsgPaymentReceivedSim   = "Confirmed: KES %d added (Simulated)."
	NotifyMsgPaymentFailed        = "Your transaction could not be completed. Reason: %s"
	NotifyMsgWithdrawal           = "KES %d has been sent to %s. Ref: %s"
	NotifyMsgDelayedConfirmed     = "Your payment of KES %d (%s) was confirmed after the wait timed out. Your balance has been updated."
	NotifyMsgDelayedUpdate        = "Your payment of KES %d (%s) failed after the wait timed out. Reason: %s"
	DescriptionTopup              = "M-Pesa Topup"
	DescriptionTopupSimulated     = "M-Pesa Topup (Simulated)"
	DescriptionWithdrawal         = "Withdrawal to M-Pesa"
	DescriptionFailedFormat       = "Failed: %s"
	DefaultFailureReason          = "Transaction failed"
	SimulationAcceptedDescription = "Success. Request accepted for processing"
	SimulationCancelledReason     = "Request cancelled by user"
)
