package frontdesk

// Reply texts of the automated flow, in the office's voice. The footer
// reminding the customer of the "menu" and "encerrar" keywords is
// appended to every reply that returns to a menu-capable state.

const msgFooter = "\n\nDeseja mais alguma informação? Digite *menu* para voltar ou *encerrar* para finalizar."

const msgWelcome = `Olá, espero que esteja bem! 🙋‍♂️
Obrigado por entrar em contato com o escritório *Jonathan Berleze Advocacia*.
Estamos prontos para ajudá-lo(a) com suas necessidades jurídicas.

Selecione uma das opções abaixo:

1️⃣ Saber o andamento do meu processo
2️⃣ Qual valor da consulta?
3️⃣ Agendar horário de atendimento
4️⃣ Conversar com secretaria

❌ Envie "encerrar" a qualquer momento para finalizar o atendimento.`

const msgMenu = `Selecione uma das opções abaixo:

1️⃣ Saber o andamento do meu processo
2️⃣ Qual valor da consulta?
3️⃣ Agendar horário de atendimento
4️⃣ Conversar com secretaria`

const msgClosed = "❌ Atendimento encerrado. Estamos à disposição sempre que precisar."

const msgAskCase = "📂 *Dr. Jonathan*: Para consultar o andamento do seu processo, por favor me informe o *número do processo* ou o *nome completo do titular*."

const msgFee = "💰 *Dr. Jonathan*: O valor da consulta é de R$ 300,00, com duração média de 1 hora. No atendimento, avaliarei sua situação jurídica e darei as orientações necessárias." + msgFooter

const msgAskAvailability = "📅 *Dr. Jonathan*: Para agendar um atendimento, por favor, informe sua disponibilidade de dias e horários."

const msgIngridGreeting = "👩 *Ingrid (Secretária)*: Olá, eu sou Ingrid, secretária do Dr. Jonathan. Para que eu possa melhor auxiliar, me diga em que posso te ajudar?"

const msgIngridTakeover = "👩 *Ingrid (Secretária)*: Oi, tudo bem? Assumindo seu atendimento agora. Como posso te ajudar?"

const msgJonathanTakeover = "🙋‍♂️ *Dr. Jonathan*: Estou assumindo novamente seu atendimento."

const msgCaseAck = "🔎 *Dr. Jonathan*: Obrigado pelas informações. Em breve retornarei com o andamento atualizado do processo." + msgFooter

const msgSchedulingAck = "📌 *Dr. Jonathan*: Obrigado! Recebi sua disponibilidade e entrarei em contato para confirmar o agendamento." + msgFooter

const msgIngridAck = "👩 *Ingrid (Secretária)*: Entendido! Já estou verificando para poder te ajudar da melhor forma." + msgFooter

const msgInvalidOption = "Desculpe, não entendi. Por favor, responda com o número de uma das opções do menu (1 a 4)." + msgFooter

const msgOutsideHours = "🕐 Olá! Nosso horário de atendimento é de segunda a sexta, das 8h às 18h. Retornaremos sua mensagem assim que possível."
