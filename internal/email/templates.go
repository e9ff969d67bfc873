package email

import (
	"fmt"
	"strings"
)

// BuildTicketConfirmationBody builds the HTML body for the purchase
// confirmation email, listing every issued ticket number.
func BuildTicketConfirmationBody(name string, ticketNumbers []int) string {
	var numbersHTML strings.Builder
	for _, n := range ticketNumbers {
		numbersHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee; font-family: monospace; font-size: 16px;">#%06d</td>
			</tr>`,
			n,
		))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Compra Confirmada</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Olá %s, sua compra foi concluída com sucesso!</p>

		<h2 style="font-size: 18px; border-bottom: 2px solid #667eea; padding-bottom: 10px;">Seus tickets</h2>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Número do Ticket</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Quantidade</span>
			<span style="font-size: 24px; font-weight: bold; color: #667eea; margin-left: 10px;">%d</span>
		</div>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			Obrigado por usar nosso serviço. Este e-mail foi enviado automaticamente.
		</p>
	</div>
</body>
</html>`, name, numbersHTML.String(), len(ticketNumbers))
}
